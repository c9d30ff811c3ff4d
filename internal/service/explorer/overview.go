package explorer

import (
	"context"

	"lake-explorer/internal/domain"
)

// NamespaceSummary is one namespace of the catalog overview.
type NamespaceSummary struct {
	Name       string   `json:"name"`
	TableCount int      `json:"table_count"`
	Tables     []string `json:"tables"`
}

// Overview summarises the whole catalog.
type Overview struct {
	TotalNamespaces int                `json:"total_namespaces"`
	TotalTables     int                `json:"total_tables"`
	Namespaces      []NamespaceSummary `json:"namespaces"`
}

// Overview lists every namespace with its tables.
func (s *Service) Overview(ctx context.Context) (Overview, error) {
	groups, err := s.AllTables(ctx)
	if err != nil {
		return Overview{}, err
	}
	ov := Overview{TotalNamespaces: len(groups), Namespaces: make([]NamespaceSummary, len(groups))}
	for i, g := range groups {
		ov.Namespaces[i] = NamespaceSummary{Name: g.Namespace, TableCount: len(g.Tables), Tables: g.Tables}
		ov.TotalTables += len(g.Tables)
	}
	return ov, nil
}

// EngineStatus reports one execution path.
type EngineStatus struct {
	Name      string `json:"name"`
	Role      string `json:"role"`
	Available bool   `json:"available"`
}

// Engine roles reported by ConnectionInfo.
const (
	RolePrimary       = "primary"
	RoleQueryFallback = "query_fallback"
	RoleFallback      = "fallback"
)

// ConnectionInfo describes the catalog and the engines behind the service.
type ConnectionInfo struct {
	CatalogType     string         `json:"catalog_type"`
	CatalogLocation string         `json:"catalog_location"`
	DataPath        string         `json:"data_path,omitempty"`
	StorageEndpoint string         `json:"storage_endpoint,omitempty"`
	DuckDBAvailable bool           `json:"duckdb_available"`
	Engines         []EngineStatus `json:"engines"`
}

// ConnectionInfo reports the catalog location and engine availability.
func (s *Service) ConnectionInfo() ConnectionInfo {
	info := s.catalog.Info()
	ci := ConnectionInfo{
		CatalogType:     info.Type,
		CatalogLocation: info.Location,
		DataPath:        info.DataPath,
		StorageEndpoint: s.storageEndpoint,
	}

	primary := EngineStatus{Name: domain.EngineDuckDB, Role: RolePrimary}
	if s.primaryExec != nil {
		primary.Name = s.primaryExec.Engine()
		primary.Available = true
	}
	ci.DuckDBAvailable = primary.Available && primary.Name == domain.EngineDuckDB
	ci.Engines = append(ci.Engines, primary)

	if s.fallbackQuery.Available() {
		ci.Engines = append(ci.Engines, EngineStatus{Name: s.fallbackQuery.Engine(), Role: RoleQueryFallback, Available: true})
	}
	ci.Engines = append(ci.Engines, EngineStatus{Name: s.fallbackExec.Engine(), Role: RoleFallback, Available: true})
	return ci
}
