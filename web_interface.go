package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// testPage serves a self-contained page for exercising the service by
// hand: an upload form plus the live listing with expiry countdowns.
func (a *API) testPage(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(testPageHTML))
}

const testPageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>tmpdrop</title>
<style>
  body { font-family: system-ui, sans-serif; max-width: 720px; margin: 2rem auto; padding: 0 1rem; color: #222; }
  h1 { font-size: 1.4rem; }
  form { border: 2px dashed #bbb; border-radius: 8px; padding: 1.5rem; text-align: center; }
  button { margin-top: .75rem; padding: .5rem 1.25rem; cursor: pointer; }
  table { width: 100%; border-collapse: collapse; margin-top: 1.5rem; }
  th, td { text-align: left; padding: .4rem .6rem; border-bottom: 1px solid #eee; font-size: .9rem; }
  .expired { color: #b00; }
  #result { margin-top: 1rem; word-break: break-all; }
</style>
</head>
<body>
<h1>tmpdrop &mdash; ephemeral file hosting</h1>
<p>Files are publicly reachable by URL and deleted 24 hours after upload.</p>

<form id="upload-form">
  <input type="file" name="file" id="file" required>
  <br>
  <button type="submit">Upload</button>
</form>
<div id="result"></div>

<table>
  <thead><tr><th>Name</th><th>Uploaded</th><th>Expires</th><th></th></tr></thead>
  <tbody id="files"></tbody>
</table>

<script>
async function refresh() {
  const resp = await fetch('/files');
  const body = await resp.json();
  const rows = (body.files || []).map(f => {
    const cls = f.isExpired ? ' class="expired"' : '';
    return '<tr' + cls + '><td><a href="' + f.url + '">' + f.name + '</a></td>' +
      '<td>' + new Date(f.uploadedAt).toLocaleString() + '</td>' +
      '<td>' + new Date(f.expiresAt).toLocaleString() + '</td>' +
      '<td>' + (f.isExpired ? 'awaiting sweep' : '') + '</td></tr>';
  });
  document.getElementById('files').innerHTML = rows.join('');
}

document.getElementById('upload-form').addEventListener('submit', async (e) => {
  e.preventDefault();
  const data = new FormData();
  data.append('file', document.getElementById('file').files[0]);
  const resp = await fetch('/upload', { method: 'POST', body: data });
  const body = await resp.json();
  const result = document.getElementById('result');
  if (resp.ok) {
    result.innerHTML = 'Uploaded: <a href="' + body.url + '">' + body.url + '</a>';
  } else {
    result.textContent = 'Upload failed: ' + (body.error || resp.status);
  }
  refresh();
});

refresh();
</script>
</body>
</html>
`
