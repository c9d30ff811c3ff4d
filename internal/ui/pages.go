package ui

import (
	"fmt"
	"sort"
	"strconv"

	"lake-explorer/internal/domain"
	"lake-explorer/internal/service/explorer"

	. "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"
)

func appPage(title string, principal domain.ContextPrincipal, body ...Node) Node {
	return HTML(
		Lang("en"),
		Attr("data-color-mode", "auto"),
		Head(
			Meta(Charset("utf-8")),
			Meta(Name("viewport"), Content("width=device-width, initial-scale=1")),
			TitleEl(Text(title+" | Lake Explorer")),
			Link(Rel("icon"), Href("data:,")),
			Link(Rel("stylesheet"), Href(stylesheetPath)),
			Script(Raw(themeInitScript)),
		),
		Body(
			Main(Class("app-shell"),
				Div(
					Class("topbar"),
					A(Href("/"), Class("brand"), Strong(Text("Lake Explorer"))),
					H1(Class("page-title"), Text(title)),
					P(Class("muted"), Text("Signed in as "+principal.Name)),
				),
				Div(Class("content"), Group(body)),
			),
		),
	)
}

func errorPage(title, message string) Node {
	return appPage(title, domain.ContextPrincipal{Name: "anonymous"},
		Div(Class(cardClass()), P(Text(message)), P(A(Href("/"), Text("Back to overview")))),
	)
}

type overviewPageData struct {
	Principal  domain.ContextPrincipal
	Overview   explorer.Overview
	Connection explorer.ConnectionInfo
}

func overviewPage(d overviewPageData) Node {
	engines := make([]Node, 0, len(d.Connection.Engines))
	for _, e := range d.Connection.Engines {
		state := "unavailable"
		if e.Available {
			state = "available"
		}
		engines = append(engines, Li(Text(fmt.Sprintf("%s (%s): %s", e.Name, e.Role, state))))
	}

	sections := make([]Node, 0, len(d.Overview.Namespaces))
	for _, ns := range d.Overview.Namespaces {
		rows := make([]Node, 0, len(ns.Tables))
		for _, t := range ns.Tables {
			rows = append(rows, Tr(Td(A(Href(tableHref(ns.Name, t)), Text(t)))))
		}
		if len(rows) == 0 {
			rows = append(rows, Tr(Td(Class("muted"), Text("No tables"))))
		}
		sections = append(sections, Div(Class(cardClass("table-wrap")),
			H2(Text(ns.Name), Span(Class("badge"), Text(strconv.Itoa(ns.TableCount)))),
			Table(TBody(Group(rows))),
		))
	}

	return appPage("Overview", d.Principal,
		Div(Class("grid"),
			Div(Class(cardClass()), H2(Text("Namespaces")), P(Class("stat"), Text(strconv.Itoa(d.Overview.TotalNamespaces)))),
			Div(Class(cardClass()), H2(Text("Tables")), P(Class("stat"), Text(strconv.Itoa(d.Overview.TotalTables)))),
			Div(Class(cardClass()),
				H2(Text("Connection")),
				P(Text(d.Connection.CatalogType+": "+d.Connection.CatalogLocation)),
				If(d.Connection.StorageEndpoint != "", P(Class("muted"), Text(d.Connection.StorageEndpoint))),
				Ul(Group(engines)),
			),
		),
		Group(sections),
	)
}

type tablePageData struct {
	Principal    domain.ContextPrincipal
	ID           domain.TableIdentifier
	Metadata     domain.TableMetadata
	Preview      domain.TabularResult
	PreviewError string
}

func tablePage(d tablePageData) Node {
	md := d.Metadata
	fieldRows := make([]Node, 0, len(md.Schema.Fields))
	for _, f := range md.Schema.Fields {
		required := "no"
		if f.Required {
			required = "yes"
		}
		fieldRows = append(fieldRows, Tr(Td(Text(strconv.Itoa(f.ID))), Td(Text(f.Name)), Td(Text(f.Type)), Td(Text(required)), Td(Text(orDash(f.Doc)))))
	}

	keys := make([]string, 0, len(md.Properties))
	for k := range md.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	propRows := make([]Node, 0, len(keys))
	for _, k := range keys {
		propRows = append(propRows, Tr(Td(Text(k)), Td(Text(md.Properties[k]))))
	}

	return appPage(d.ID.QualifiedName(), d.Principal,
		Div(Class(cardClass()),
			P(Text("Location: "+orDash(md.Location))),
			P(Text("Snapshot: "+int64PtrOrDash(md.CurrentSnapshotID)+" ("+strconv.Itoa(len(md.Snapshots))+" total)")),
			P(Text("Data files: "+strconv.FormatInt(md.DataFileCount, 10))),
			P(Text("Records: "+int64PtrOrDash(md.RecordCount))),
			A(Href("/"), Text("<- Back to overview")),
		),
		Div(Class(cardClass("table-wrap")),
			H2(Text("Schema")),
			Table(THead(Tr(Th(Text("ID")), Th(Text("Name")), Th(Text("Type")), Th(Text("Required")), Th(Text("Doc")))), TBody(Group(fieldRows))),
		),
		If(len(propRows) > 0, Div(Class(cardClass("table-wrap")),
			H2(Text("Properties")),
			Table(TBody(Group(propRows))),
		)),
		previewCard(d),
	)
}

func previewCard(d tablePageData) Node {
	if d.PreviewError != "" {
		return Div(Class(cardClass()), H2(Text("Preview")), P(Class("error"), Text(d.PreviewError)))
	}
	p := d.Preview
	head := make([]Node, 0, len(p.Columns))
	for _, c := range p.Columns {
		head = append(head, Th(Text(c), Span(Class("muted"), Text(" "+p.DTypes[c]))))
	}
	rows := make([]Node, 0, len(p.Data))
	for _, row := range p.Data {
		cells := make([]Node, 0, len(row))
		for _, v := range row {
			cells = append(cells, Td(Text(cellText(v))))
		}
		rows = append(rows, Tr(Group(cells)))
	}
	return Div(Class(cardClass("table-wrap")),
		H2(Text("Preview"), Span(Class("badge"), Text(p.Engine))),
		P(Class("muted"), Text(fmt.Sprintf("%d rows (limit %d)", p.RowCount, p.Limit))),
		Table(THead(Tr(Group(head))), TBody(Group(rows))),
	)
}

func cellText(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprint(v)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func int64PtrOrDash(v *int64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatInt(*v, 10)
}

func cardClass(extra ...string) string {
	c := "card"
	for _, e := range extra {
		c += " " + e
	}
	return c
}
