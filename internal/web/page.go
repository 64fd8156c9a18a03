package web

import (
	"html/template"

	"github.com/fdkevin0/htmlview"
)

type pageData struct {
	Seq       uint64
	Source    string
	Formatted bool
	Text      string
	Summary   htmlview.Summary
}

var pageTemplate = template.Must(template.New("index").Parse(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>HTML Viewer</title>
    <style>
      * { box-sizing: border-box; }
      html, body { height: 100%; margin: 0; }
      body { display: flex; font-family: ui-sans-serif, system-ui, sans-serif; }
      .section { flex: 1; display: flex; flex-direction: column; padding: 12px; min-width: 0; }
      textarea { flex: 1; width: 100%; font-family: ui-monospace, Menlo, monospace; font-size: 13px; }
      .toolbar { display: flex; gap: 6px; align-items: center; margin-bottom: 8px; }
      .toolbar button { padding: 4px 10px; cursor: pointer; }
      .toolbar .meta { margin-left: auto; color: #666; font-size: 12px; }
      .output { flex: 1; border: 1px solid #ddd; overflow: auto; }
      .output iframe { width: 100%; height: 100%; border: 0; }
      .output pre { margin: 0; padding: 8px; font-size: 13px; }
      .hidden { display: none; }
    </style>
  </head>
  <body>
    <div class="section">
      <textarea id="source" placeholder="Type or paste your HTML here...">{{.Source}}</textarea>
    </div>
    <div class="section">
      <div class="toolbar">
        <button id="toggle" type="button">{{if .Formatted}}Preview{{else}}Code{{end}}</button>
        <button id="download" type="button">Download</button>
        <button id="copy" type="button">Copy</button>
        <span class="meta" id="meta">{{with .Summary.Title}}{{.}} · {{end}}{{.Summary.Segments}} segments · depth {{.Summary.MaxDepth}}</span>
      </div>
      <div class="output">
        <iframe id="preview" sandbox="allow-scripts" src="/preview" class="{{if .Formatted}}hidden{{end}}"></iframe>
        <pre id="formatted" class="{{if not .Formatted}}hidden{{end}}">{{if .Formatted}}{{.Text}}{{end}}</pre>
      </div>
    </div>
    <script>
      const source = document.getElementById('source');
      const preview = document.getElementById('preview');
      const formatted = document.getElementById('formatted');
      const toggle = document.getElementById('toggle');
      const meta = document.getElementById('meta');

      function show(view) {
        const isFormatted = view.mode === 'formatted';
        toggle.textContent = isFormatted ? 'Preview' : 'Code';
        preview.classList.toggle('hidden', isFormatted);
        formatted.classList.toggle('hidden', !isFormatted);
        if (isFormatted) {
          formatted.textContent = view.text;
        } else {
          preview.src = '/preview?t=' + Date.now();
        }
        const s = view.summary;
        meta.textContent = (s.title ? s.title + ' · ' : '') + s.segments + ' segments · depth ' + s.max_depth;
      }

      // Edits go out one at a time and carry a counter, so the server
      // always ends up with the latest text.
      let seq = {{.Seq}};
      let pending = Promise.resolve();

      function enqueue(task) {
        pending = pending.then(task).catch((e) => console.log('request failed', e));
        return pending;
      }

      source.addEventListener('input', () => {
        const text = source.value;
        const rev = ++seq;
        enqueue(async () => {
          await fetch('/api/source', {
            method: 'PUT',
            headers: { 'X-Source-Seq': String(rev) },
            body: text,
          });
          const resp = await fetch('/api/view');
          show(await resp.json());
        });
      });

      toggle.addEventListener('click', () => {
        enqueue(async () => {
          const resp = await fetch('/api/toggle', { method: 'POST' });
          show(await resp.json());
        });
      });

      document.getElementById('download').addEventListener('click', async () => {
        await pending;
        window.location.href = '/api/download';
      });

      document.getElementById('copy').addEventListener('click', async () => {
        await pending;
        try {
          const resp = await fetch('/api/view');
          const view = await resp.json();
          if (view.mode !== 'formatted') {
            console.log('copy failed', 'no formatted text selected');
            return;
          }
          await navigator.clipboard.writeText(view.text);
        } catch (e) {
          console.log('copy failed', e);
        }
      });
    </script>
  </body>
</html>
`))
