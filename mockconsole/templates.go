package mockconsole

import "html/template"

// fillerFields precede the body sections so that the request body is the
// tenth list item and the response body the eleventh, as in the console.
var fillerFields = []string{"Method", "URI", "Status", "Started", "Duration", "Remote Address", "User Agent", "Headers", "Query"}

var loginTmpl = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html><head><title>Console Login</title></head>
<body>
{{if .Failed}}<div class="alert alert-danger">Invalid username or password</div>{{end}}
<form action="/{{.Realm}}/console/login" method="post">
<input type="hidden" name="csrf_token" value="{{.CSRF}}">
<input type="text" name="username">
<input type="password" name="password">
<button type="submit" name="login" value="Login">Sign in</button>
</form>
</body></html>`))

var sessionsTmpl = template.Must(template.New("sessions").Parse(`<!DOCTYPE html>
<html><head><title>PunchOut Sessions</title><meta name="csrf-token" content="{{.CSRF}}"></head>
<body>
<div class="session-list">
<table class="sessions">
<thead><tr><th>Catalog</th><th>Session</th><th>Environment</th></tr></thead>
<tbody>
{{range .Sessions}}<tr class="session-row"><td>{{.Label}}</td><td><a class="open" href="/{{$.Realm}}/console/manage/punchout_session/open/id/{{.ID}}">{{.Key}}</a></td><td>{{.Environment}}</td></tr>
{{end}}</tbody>
</table>
</div>
</body></html>`))

var detailTmpl = template.Must(template.New("detail").Parse(`<!DOCTYPE html>
<html><head><title>Session {{.Session.Key}}</title></head>
<body>
<div class="session-detail">
<h2>{{.Session.Label}} {{.Session.Key}}</h2>
<a class="back" href="/{{.Realm}}/console/manage/punchout_session">Back</a>
<button id="requests-btn" type="button">Request(s)</button>
<table id="requests" class="requests" style="display:none">
<tbody>
{{range .Session.Transactions}}<tr><td>{{.ID}}</td><td class="open"><a href="/{{$.Realm}}/console/manage/http_request/open/id/{{.ID}}?parent=punchout_session&amp;parent_id={{$.Session.ID}}">open</a></td><td>{{.URI}}</td></tr>
{{end}}</tbody>
</table>
</div>
<div id="modal" class="modal" role="dialog" style="display:none">
<div class="modal-content"><button type="button" class="close" aria-label="Close">&times;</button><div id="modal-body"></div></div>
</div>
<script>
(function () {
  var modal = document.getElementById('modal');
  var body = document.getElementById('modal-body');
  function closeModal() { modal.style.display = 'none'; body.innerHTML = ''; }
  document.getElementById('requests-btn').addEventListener('click', function () {
    document.getElementById('requests').style.display = 'table';
  });
  document.querySelectorAll('td.open a').forEach(function (a) {
    a.addEventListener('click', function (e) {
      e.preventDefault();
      fetch(a.getAttribute('href'), {credentials: 'same-origin'})
        .then(function (r) { return r.text(); })
        .then(function (html) { body.innerHTML = html; modal.style.display = 'block'; });
    });
  });
  modal.querySelector('.close').addEventListener('click', closeModal);
  document.addEventListener('keydown', function (e) { if (e.key === 'Escape') { closeModal(); } });
})();
</script>
</body></html>`))

var transactionTmpl = template.Must(template.New("transaction").Parse(`<form class="http-request"><ul>
{{range .Filler}}<li><label>{{.}}</label><div>-</div></li>
{{end}}<li><label>Request Body</label><div>{{if .Tx.CodeOnly}}<pre><code>{{.Tx.Request}}</code></pre>{{else}}<div data-data_body="{{.Tx.Request}}"><pre><code>{{.Tx.Request}}</code></pre></div>{{end}}</div></li>
<li><label>Response Body</label><div>{{if .Tx.CodeOnly}}<pre><code>{{.Tx.Response}}</code></pre>{{else}}<div data-data_body="{{.Tx.Response}}"><pre><code>{{.Tx.Response}}</code></pre></div>{{end}}</div></li>
</ul></form>`))
