package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"lake-explorer/internal/app"
	"lake-explorer/internal/domain"
)

func newNamespacesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "namespaces",
		Short: "List namespaces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd, func(a *app.App) error {
				names, err := a.Service.ListNamespaces(cmd.Context())
				if err != nil {
					return err
				}
				return render(cmd, map[string]any{"namespaces": names, "count": len(names)}, func(w io.Writer) {
					rows := make([][]string, len(names))
					for i, n := range names {
						rows[i] = []string{n}
					}
					printTable(w, []string{"namespace"}, rows)
				})
			})
		},
	}
}

func newTablesCmd(opts *rootOptions) *cobra.Command {
	var maxResults int
	var pageToken string
	cmd := &cobra.Command{
		Use:   "tables [namespace]",
		Short: "List tables, grouped by namespace or in one namespace",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(a *app.App) error {
				if len(args) == 0 {
					groups, err := a.Service.AllTables(cmd.Context())
					if err != nil {
						return err
					}
					return render(cmd, groups, func(w io.Writer) {
						var rows [][]string
						for _, g := range groups {
							for _, t := range g.Tables {
								rows = append(rows, []string{g.Namespace, t})
							}
						}
						printTable(w, []string{"namespace", "table"}, rows)
					})
				}

				ns, err := domain.ParseNamespace(args[0])
				if err != nil {
					return err
				}
				tables, next, err := a.Service.ListTables(cmd.Context(), ns, domain.PageRequest{MaxResults: maxResults, PageToken: pageToken})
				if err != nil {
					return err
				}
				resp := map[string]any{"namespace": ns.String(), "tables": tables, "count": len(tables)}
				if next != "" {
					resp["next_page_token"] = next
				}
				return render(cmd, resp, func(w io.Writer) {
					rows := make([][]string, len(tables))
					for i, t := range tables {
						rows[i] = []string{t}
					}
					printTable(w, []string{"table"}, rows)
					if next != "" {
						fmt.Fprintf(cmd.ErrOrStderr(), "\nnext page: --page-token %s\n", next)
					}
				})
			})
		},
	}
	cmd.Flags().IntVar(&maxResults, "max-results", 0, "Page size (default 100)")
	cmd.Flags().StringVar(&pageToken, "page-token", "", "Token from a previous page")
	return cmd
}

func newOverviewCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "overview",
		Short: "Summarise the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd, func(a *app.App) error {
				ov, err := a.Service.Overview(cmd.Context())
				if err != nil {
					return err
				}
				return render(cmd, ov, func(w io.Writer) {
					rows := make([][]string, len(ov.Namespaces))
					for i, ns := range ov.Namespaces {
						rows[i] = []string{ns.Name, strconv.Itoa(ns.TableCount)}
					}
					printTable(w, []string{"namespace", "tables"}, rows)
					fmt.Fprintf(w, "\n%d namespaces, %d tables\n", ov.TotalNamespaces, ov.TotalTables)
				})
			})
		},
	}
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "search <term>",
		Short: "Find tables whose name contains term (case-insensitive)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(a *app.App) error {
				results, err := a.Service.Search(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return render(cmd, map[string]any{"search_term": args[0], "results": results, "count": len(results)}, func(w io.Writer) {
					rows := make([][]string, len(results))
					for i, r := range results {
						rows[i] = []string{r.Namespace, r.TableName, r.FullName}
					}
					printTable(w, []string{"namespace", "table", "full_name"}, rows)
				})
			})
		},
	}
}

func newInfoCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info <namespace.table>",
		Short: "Show schema and metadata of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTableRef(args[0])
			if err != nil {
				return err
			}
			return opts.withApp(cmd, func(a *app.App) error {
				md, err := a.Service.Metadata(cmd.Context(), id)
				if err != nil {
					return err
				}
				return render(cmd, map[string]any{"namespace": id.Namespace.String(), "table_name": id.Name, "metadata": md}, func(w io.Writer) {
					detail := map[string]any{
						"location":        md.Location,
						"table_uuid":      md.TableUUID,
						"format_version":  md.FormatVersion,
						"snapshots":       len(md.Snapshots),
						"data_file_count": md.DataFileCount,
						"properties":      md.Properties,
					}
					if md.CurrentSnapshotID != nil {
						detail["current_snapshot_id"] = *md.CurrentSnapshotID
					}
					if md.RecordCount != nil {
						detail["record_count"] = *md.RecordCount
					}
					printDetail(w, detail)
					fmt.Fprintln(w)

					rows := make([][]string, len(md.Schema.Fields))
					for i, f := range md.Schema.Fields {
						rows[i] = []string{strconv.Itoa(f.ID), f.Name, f.Type, strconv.FormatBool(f.Required), f.Doc}
					}
					printTable(w, []string{"id", "name", "type", "required", "doc"}, rows)
				})
			})
		},
	}
}

// parseTableRef splits "ns.table" at the last unescaped dot. A bare name is
// a table in the default namespace.
func parseTableRef(ref string) (domain.TableIdentifier, error) {
	path, err := domain.ParseNamespace(ref)
	if err != nil {
		return domain.TableIdentifier{}, err
	}
	if len(path) == 0 {
		return domain.TableIdentifier{}, domain.ErrValidation("%q is not a table reference", ref)
	}
	name := path[len(path)-1]
	if name == "" {
		return domain.TableIdentifier{}, domain.ErrValidation("table name is required in %q", ref)
	}
	ns := path[:len(path)-1]
	if len(ns) == 1 && ns[0] == domain.DefaultNamespace {
		ns = domain.NamespacePath{}
	}
	return domain.TableIdentifier{Namespace: ns, Name: name}, nil
}
