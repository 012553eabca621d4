package http

import nethttp "net/http"

func dashboardHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	if r.URL.Path != "/" {
		nethttp.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(nethttp.StatusOK)
	_, _ = w.Write([]byte(dashboardHTML))
}

func faviconHandler(w nethttp.ResponseWriter, _ *nethttp.Request) {
	w.WriteHeader(nethttp.StatusNoContent)
}

const dashboardHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Incident Analysis</title>
  <style>
    :root {
      --brand: #0e5d8f;
      --brand-2: #0971b2;
      --bg: #f7f7f7;
      --paper: #fff;
      --text: #333;
      --muted: #777;
      --line: #ddd;
      --ok-text: #3c763d;
      --bad-bg: #f2dede;
      --bad-text: #a94442;
      --warn-bg: #fcf8e3;
    }

    * { box-sizing: border-box; }

    body {
      margin: 0;
      background: var(--bg);
      color: var(--text);
      font-family: "Helvetica Neue", Helvetica, Arial, sans-serif;
      font-size: 14px;
      line-height: 1.42857143;
    }

    header {
      background: linear-gradient(to right, var(--brand) 0, var(--brand-2) 100%);
      box-shadow: 0 2px 5px rgba(0, 0, 0, 0.15);
    }

    .container { margin: 0 auto; padding: 0 15px; max-width: 1680px; }

    .header-inner {
      min-height: 64px;
      display: flex;
      align-items: center;
      justify-content: space-between;
      gap: 16px;
      color: #fff;
    }

    .brand { font-size: 22px; font-weight: 300; }
    .brand strong { font-weight: 600; }

    select {
      padding: 6px 8px;
      border-radius: 3px;
      border: 1px solid #c7d7e5;
      font-size: 13px;
    }

    main { padding: 18px 0 32px; }

    .grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(420px, 1fr)); gap: 14px; }

    .panel {
      background: var(--paper);
      border: 1px solid var(--line);
      border-radius: 4px;
      padding: 12px 14px;
      margin-bottom: 14px;
    }

    .panel h2 { margin: 0 0 10px; font-size: 15px; font-weight: 600; color: #444; }

    .kpis { display: flex; gap: 24px; flex-wrap: wrap; }
    .kpi .label { color: var(--muted); font-size: 11px; text-transform: uppercase; letter-spacing: 0.5px; }
    .kpi .value { font-size: 22px; font-weight: 300; }
    .kpi .prev { color: var(--muted); font-size: 12px; }

    .level { display: inline-block; padding: 1px 8px; border-radius: 10px; font-size: 12px; background: var(--warn-bg); }
    .level.critical { background: var(--bad-bg); color: var(--bad-text); }

    .insight { border-left: 4px solid var(--brand); }
    .insight .conclusion { font-size: 15px; margin-bottom: 6px; }
    .insight .recommendation { color: var(--muted); }
    .muted { color: var(--muted); font-size: 12px; }

    table { width: 100%; border-collapse: collapse; }

    th, td {
      padding: 6px 8px;
      border-top: 1px solid var(--line);
      text-align: left;
      font-size: 13px;
    }

    thead th {
      border-bottom: 2px solid var(--line);
      border-top: 0;
      color: #555;
      font-size: 11px;
      text-transform: uppercase;
      letter-spacing: 0.5px;
      background: #fafafa;
    }

    td.num { text-align: right; font-variant-numeric: tabular-nums; }
    tr.outlier td { background: var(--bad-bg); }
    td.bold { font-weight: 700; color: var(--bad-text); }

    img.chart { width: 100%; height: auto; }
    .error { color: var(--bad-text); }
  </style>
</head>
<body>
  <header>
    <div class="container header-inner">
      <div class="brand"><strong>Incident</strong> Analysis</div>
      <label>Scenario <select id="scenario"></select></label>
    </div>
  </header>

  <main class="container">
    <section class="panel" id="alert"></section>
    <section class="panel insight" id="insight"></section>
    <section class="panel">
      <h2>Transactions <select id="metric">
        <option value="cnt">count</option>
        <option value="succ">success rate</option>
        <option value="respTime">response time</option>
        <option value="fail">failures</option>
      </select></h2>
      <img class="chart" id="chart" alt="time series" />
    </section>
    <div class="grid" id="dimensions"></div>
  </main>

  <script>
    const DIMENSIONS = [
      ["transType", "Transaction type"],
      ["server", "Server"],
      ["client", "Client"],
      ["channel", "Channel"],
      ["retCode", "Return code"],
    ];

    const esc = (s) => String(s == null ? "" : s).replace(/[&<>"]/g, (c) => ({"&": "&amp;", "<": "&lt;", ">": "&gt;", '"': "&quot;"}[c]));

    async function getJSON(url) {
      const res = await fetch(url);
      const body = await res.json();
      if (!res.ok) throw new Error(body.error || res.statusText);
      return body;
    }

    async function loadScenarios() {
      const body = await getJSON("/api/v1/scenarios");
      const sel = document.getElementById("scenario");
      sel.innerHTML = body.data.map((s) =>
        '<option value="' + esc(s.name) + '"' + (s.name === body.meta.current ? " selected" : "") + ">" + esc(s.title || s.name) + "</option>").join("");
    }

    async function renderAlert() {
      const el = document.getElementById("alert");
      try {
        const v = (await getJSON("/api/v1/alert")).data;
        const d = v.display;
        const kpi = (label, cur, prev) =>
          '<div class="kpi"><div class="label">' + label + '</div><div class="value">' + esc(cur) + '</div><div class="prev">previous ' + esc(prev) + "</div></div>";
        el.innerHTML =
          "<h2>" + esc(v.alert.name) + ' <span class="level ' + esc(v.alert.level) + '">' + esc(v.alert.level) + "</span></h2>" +
          '<p class="muted">' + esc(v.alert.app) + " / " + esc(v.alert.component) + " &middot; " + Math.round(v.durationSeconds / 60) + " min &middot; " + esc(v.alert.description) + "</p>" +
          '<div class="kpis">' + kpi("Transactions", d.cnt, d.previousCnt) + kpi("Success rate", d.succ, d.previousSucc) + kpi("Response time", d.respTime, d.previousRespTime) + "</div>";
      } catch (err) {
        el.innerHTML = '<p class="error">' + esc(err.message) + "</p>";
      }
    }

    async function renderInsight() {
      const el = document.getElementById("insight");
      try {
        const v = (await getJSON("/api/v1/correlation")).data;
        const pf = v.primaryFactor;
        el.innerHTML =
          "<h2>Correlation</h2>" +
          '<div class="conclusion">' + esc(v.conclusion) + "</div>" +
          '<div class="recommendation">' + esc(v.recommendation) + "</div>" +
          '<p class="muted">primary factor: ' + esc(pf.type) + (pf.name ? " " + esc(pf.name) : "") +
          " &middot; servers " + esc(v.distribution.servers) + ", clients " + esc(v.distribution.clients) + ", transaction types " + esc(v.distribution.transTypes) +
          (v.overridden ? " &middot; set by alert status" : "") + "</p>";
      } catch (err) {
        el.innerHTML = '<p class="error">' + esc(err.message) + "</p>";
      }
    }

    function renderChart() {
      const metric = document.getElementById("metric").value;
      document.getElementById("chart").src = "/api/v1/charts/timeseries.png?metric=" + encodeURIComponent(metric) + "&t=" + Date.now();
    }

    async function renderDimension(dim, title) {
      try {
        const body = await getJSON("/api/v1/dimensions/" + dim);
        const rows = body.data.map((r) =>
          '<tr class="' + (r.outlier ? "outlier" : "") + '">' +
          "<td>" + esc(r.name) + "</td>" +
          '<td class="num' + (r.bold ? " bold" : "") + '">' + esc(r.displayImpact) + "</td>" +
          '<td class="num">' + esc(r.displayOutlierness) + "</td>" +
          '<td class="num">' + esc(r.cnt) + "</td>" +
          '<td class="num">' + esc(r.displaySucc) + "</td>" +
          '<td class="num">' + esc(r.failRate.toFixed(2)) + "%</td></tr>").join("");
        return '<section class="panel"><h2>' + esc(title) + ' <span class="muted">' + esc(body.meta.distribution) + "</span></h2>" +
          "<table><thead><tr><th>Name</th><th>Impact</th><th>Outlierness</th><th>Count</th><th>Success</th><th>Fail rate</th></tr></thead>" +
          "<tbody>" + rows + "</tbody></table></section>";
      } catch (err) {
        return '<section class="panel"><h2>' + esc(title) + '</h2><p class="error">' + esc(err.message) + "</p></section>";
      }
    }

    async function renderDimensions() {
      const parts = await Promise.all(DIMENSIONS.map(([dim, title]) => renderDimension(dim, title)));
      document.getElementById("dimensions").innerHTML = parts.join("");
    }

    function refresh() {
      renderAlert();
      renderInsight();
      renderChart();
      renderDimensions();
    }

    function connectLive() {
      const proto = location.protocol === "https:" ? "wss://" : "ws://";
      const ws = new WebSocket(proto + location.host + "/ws");
      ws.onmessage = async (msg) => {
        const ev = JSON.parse(msg.data);
        if (ev.type === "scenario_changed") {
          await loadScenarios();
          refresh();
        }
      };
      ws.onclose = () => setTimeout(connectLive, 3000);
    }

    document.getElementById("scenario").addEventListener("change", async (e) => {
      await fetch("/api/v1/scenario", {
        method: "PUT",
        headers: {"Content-Type": "application/json"},
        body: JSON.stringify({scenario: e.target.value}),
      });
      refresh();
    });
    document.getElementById("metric").addEventListener("change", renderChart);

    loadScenarios().then(refresh);
    connectLive();
  </script>
</body>
</html>
`
