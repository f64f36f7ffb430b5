package dashboard

// indexHTML is the dashboard UI. It polls the REST API for state and
// listens on /api/events for push updates, so the page stays current
// without a build step or external assets.
const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>mixdown dashboard</title>
<style>
  body { background: #0d1117; color: #c9d1d9; font-family: ui-monospace, "SF Mono", Menlo, monospace; margin: 0; padding: 24px; }
  h1 { font-size: 18px; color: #58a6ff; margin: 0 0 16px; }
  .stats { display: flex; gap: 12px; flex-wrap: wrap; margin-bottom: 24px; }
  .stat { background: #161b22; border: 1px solid #30363d; border-radius: 6px; padding: 12px 16px; min-width: 110px; }
  .stat .label { font-size: 11px; color: #8b949e; text-transform: uppercase; }
  .stat .value { font-size: 22px; margin-top: 4px; }
  table { border-collapse: collapse; width: 100%; }
  th, td { text-align: left; padding: 8px 12px; border-bottom: 1px solid #21262d; font-size: 13px; }
  th { color: #8b949e; font-size: 11px; text-transform: uppercase; }
  .completed { color: #3fb950; }
  .failed { color: #f85149; }
  .running { color: #d29922; }
  .pending { color: #8b949e; }
  .dim { color: #8b949e; }
</style>
</head>
<body>
<h1>mixdown verification runs</h1>
<div class="stats" id="stats"></div>
<table>
  <thead>
    <tr><th>run</th><th>origin</th><th>status</th><th>scenarios</th><th>fixtures</th><th>gate</th><th>started</th></tr>
  </thead>
  <tbody id="runs"></tbody>
</table>
<script>
function stat(label, value) {
  return '<div class="stat"><div class="label">' + label + '</div><div class="value">' + value + '</div></div>';
}

function renderStats(s) {
  var rate = (s.success_rate * 100).toFixed(0) + '%';
  var avg = s.avg_duration_seconds.toFixed(1) + 's';
  document.getElementById('stats').innerHTML =
    stat('runs', s.total_runs) +
    stat('active', s.active_runs) +
    stat('completed', s.completed_runs) +
    stat('failed', s.failed_runs) +
    stat('fixtures', s.total_fixtures) +
    stat('success', rate) +
    stat('avg duration', avg);
}

function renderRuns(runs) {
  var rows = runs.map(function (r) {
    var fixtures = r.fixture_count > 0
      ? r.fixtures_passed + '/' + r.fixture_count
      : '<span class="dim">-</span>';
    return '<tr>' +
      '<td>' + r.name + ' <span class="dim">' + r.id.slice(0, 8) + '</span></td>' +
      '<td>' + r.origin + '</td>' +
      '<td class="' + r.status + '">' + r.status + '</td>' +
      '<td>' + r.scenario_count + '</td>' +
      '<td>' + fixtures + '</td>' +
      '<td>' + (r.gate_status || '<span class="dim">-</span>') + '</td>' +
      '<td class="dim">' + new Date(r.started_at).toLocaleTimeString() + '</td>' +
      '</tr>';
  });
  document.getElementById('runs').innerHTML = rows.join('');
}

function refresh() {
  fetch('/api/stats').then(function (r) { return r.json(); }).then(renderStats);
  fetch('/api/runs').then(function (r) { return r.json(); }).then(renderRuns);
}

var source = new EventSource('/api/events');
source.onmessage = refresh;
refresh();
</script>
</body>
</html>
`
