package ui

import "net/http"

const stylesheetPath = "/static/app.css"

const themeInitScript = `(function(){
  var root=document.documentElement;
  var stored='auto';
  try { stored=localStorage.getItem('lakex-theme')||'auto'; } catch (_) {}
  if(stored!=='light'&&stored!=='dark'){ stored='auto'; }
  root.setAttribute('data-color-mode',stored);
})();`

const stylesheet = `:root{--bg:#f6f8fa;--fg:#1f2328;--muted:#656d76;--card:#fff;--border:#d0d7de;--accent:#0969da}
@media (prefers-color-scheme: dark){:root[data-color-mode=auto]{--bg:#0d1117;--fg:#e6edf3;--muted:#8d96a0;--card:#161b22;--border:#30363d;--accent:#4493f8}}
:root[data-color-mode=dark]{--bg:#0d1117;--fg:#e6edf3;--muted:#8d96a0;--card:#161b22;--border:#30363d;--accent:#4493f8}
body{margin:0;background:var(--bg);color:var(--fg);font:14px/1.5 system-ui,sans-serif}
a{color:var(--accent);text-decoration:none}
.app-shell{max-width:1200px;margin:0 auto;padding:16px}
.topbar{display:flex;align-items:baseline;gap:16px;border-bottom:1px solid var(--border);margin-bottom:16px}
.page-title{font-size:20px;flex:1}
.muted{color:var(--muted)}
.error{color:#cf222e}
.grid{display:grid;grid-template-columns:repeat(auto-fit,minmax(240px,1fr));gap:16px}
.card{background:var(--card);border:1px solid var(--border);border-radius:6px;padding:16px;margin-bottom:16px}
.stat{font-size:28px;font-weight:600;margin:0}
.badge{margin-left:8px;padding:0 8px;border:1px solid var(--border);border-radius:12px;font-size:12px;font-weight:400}
.table-wrap{overflow-x:auto}
table{border-collapse:collapse;width:100%}
th,td{text-align:left;padding:4px 8px;border-bottom:1px solid var(--border);white-space:nowrap}
`

func serveStylesheet(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write([]byte(stylesheet))
}
