package web

import (
	"net/http"
	"os"

	. "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"
)

// handleIndex renders the single-page UI: upload forms for transform and
// sync, the backup controls, and the default mapping file contents.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	defaultMapping := ""
	if data, err := os.ReadFile(s.cfg.Upload.DefaultMappingPath); err == nil {
		defaultMapping = string(data)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = indexPage(s.products != nil, defaultMapping).Render(w)
}

func indexPage(wooConfigured bool, defaultMapping string) Node {
	return HTML(
		Lang("en"),
		Head(
			Meta(Charset("utf-8")),
			Meta(Name("viewport"), Content("width=device-width, initial-scale=1")),
			TitleEl(Text("Catalog Sync")),
			StyleEl(Raw(pageCSS)),
		),
		Body(
			Main(
				H1(Text("Catalog Sync")),
				wooStatus(wooConfigured),

				Section(
					H2(Text("Transform CSV")),
					uploadForm("/transform", false),
				),

				Section(
					H2(Text("Sync to store")),
					uploadForm("/api/sync", true),
				),

				Section(
					H2(Text("Catalog backup")),
					Button(ID("backup-start"), Type("button"), Text("Start backup")),
					P(ID("backup-status"), Text("idle")),
					A(ID("backup-download"), Href("/api/backup/download"), Style("display:none"), Text("Download export")),
				),

				If(defaultMapping != "",
					Section(
						H2(Text("Default mapping")),
						Pre(Code(Text(defaultMapping))),
					),
				),
			),
			Script(Raw(backupPollScript)),
		),
	)
}

func wooStatus(configured bool) Node {
	if configured {
		return P(Class("status ok"), Text("Store connection configured."))
	}
	return P(Class("status warn"), Text("Store connection not configured; only CSV transformation is available."))
}

func uploadForm(action string, sync bool) Node {
	return Form(
		Action(action), Method("post"), EncType("multipart/form-data"),
		Label(Text("Data file (.csv, .xlsx)")),
		Input(Type("file"), Name("csv_file"), Required()),
		Label(Text("Mapping file (optional, .yaml/.json)")),
		Input(Type("file"), Name("mapping_file")),
		Label(
			Input(Type("checkbox"), Name("use_default_mapping"), Value("true")),
			Text(" Use default mapping"),
		),
		Label(Text("Input delimiter")),
		Input(Type("text"), Name("delimiter_in"), Attr("maxlength", "1"), Placeholder(",")),
		Label(Text("Output delimiter")),
		Input(Type("text"), Name("delimiter_out"), Attr("maxlength", "1"), Placeholder(",")),
		Label(
			Input(Type("checkbox"), Name("strict"), Value("true")),
			Text(" Strict mode"),
		),
		If(sync, Label(
			Input(Type("checkbox"), Name("dry_run"), Value("true")),
			Text(" Dry run"),
		)),
		Button(Type("submit"), Text("Upload")),
	)
}

const pageCSS = `
body { font-family: system-ui, sans-serif; margin: 2rem auto; max-width: 48rem; padding: 0 1rem; }
section { margin: 2rem 0; }
form label { display: block; margin-top: .75rem; }
.status.ok { color: #1a7f37; }
.status.warn { color: #9a6700; }
pre { background: #f6f8fa; padding: 1rem; overflow-x: auto; }
`

// backupPollScript polls the backup state every second until the job ends.
const backupPollScript = `
(function () {
	var btn = document.getElementById('backup-start');
	var status = document.getElementById('backup-status');
	var link = document.getElementById('backup-download');
	var timer = null;

	function poll() {
		fetch('/api/backup/status').then(function (r) { return r.json(); }).then(function (st) {
			status.textContent = st.phase + (st.message ? ': ' + st.message : '');
			if (st.phase === 'complete') {
				link.style.display = 'inline';
				clearInterval(timer);
			} else if (st.phase === 'error') {
				status.textContent = 'error: ' + st.error;
				clearInterval(timer);
			}
		});
	}

	btn.addEventListener('click', function () {
		link.style.display = 'none';
		fetch('/api/backup', { method: 'POST' }).then(function () {
			timer = setInterval(poll, 1000);
		});
	});
})();
`
