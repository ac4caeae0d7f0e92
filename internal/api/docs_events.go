package api

const eventsDocsHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Event Stream - TV Crosshair Sync</title>
  <style>
    *, *::before, *::after { box-sizing: border-box; }
    body {
      margin: 0;
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", sans-serif;
      font-size: 14px;
      line-height: 1.65;
      background: #0d1117;
      color: #c9d1d9;
    }
    a { color: #58a6ff; text-decoration: none; }
    a:hover { text-decoration: underline; }
    nav {
      background: #161b22;
      border-bottom: 1px solid #30363d;
      padding: 0 24px;
      height: 48px;
      display: flex;
      align-items: center;
      gap: 24px;
    }
    nav .brand { font-weight: 600; font-size: 15px; color: #e6edf3; }
    nav .sep { color: #484f58; }
    nav .current { color: #e6edf3; font-weight: 500; }
    main { max-width: 900px; margin: 0 auto; padding: 32px 16px 64px; }
    h1 { margin: 0 0 8px; font-size: 28px; font-weight: 600; color: #e6edf3; }
    h2 {
      margin: 40px 0 12px;
      font-size: 18px;
      font-weight: 600;
      color: #e6edf3;
      padding-bottom: 8px;
      border-bottom: 1px solid #21262d;
    }
    .subtitle { color: #8b949e; margin: 0 0 36px; font-size: 15px; }
    .endpoint {
      display: inline-flex;
      align-items: center;
      gap: 10px;
      background: #161b22;
      border: 1px solid #30363d;
      border-radius: 6px;
      padding: 10px 16px;
      margin-bottom: 20px;
      font-family: "SFMono-Regular", Consolas, "Liberation Mono", Menlo, monospace;
    }
    .method {
      background: #1f6feb;
      color: #fff;
      font-weight: 700;
      font-size: 11px;
      padding: 2px 7px;
      border-radius: 4px;
    }
    table { width: 100%; border-collapse: collapse; margin-bottom: 20px; font-size: 13px; }
    th {
      text-align: left;
      padding: 8px 12px;
      background: #161b22;
      color: #8b949e;
      border-bottom: 1px solid #30363d;
    }
    td { padding: 8px 12px; border-bottom: 1px solid #21262d; vertical-align: top; }
    code {
      font-family: "SFMono-Regular", Consolas, "Liberation Mono", Menlo, monospace;
      font-size: 12px;
      background: #161b22;
      border: 1px solid #30363d;
      border-radius: 3px;
      padding: 1px 5px;
      color: #e6edf3;
    }
    pre {
      background: #161b22;
      border: 1px solid #30363d;
      border-radius: 6px;
      padding: 16px;
      overflow-x: auto;
    }
    pre code { background: none; border: none; padding: 0; font-size: 13px; }
  </style>
</head>
<body>
  <nav>
    <a class="brand" href="/docs">TV Crosshair Sync</a>
    <span class="sep">/</span>
    <span class="current">Event Stream</span>
  </nav>
  <main>
    <h1>Event Stream</h1>
    <p class="subtitle">Server-sent events for every gesture the coordinator mirrors across charts.</p>

    <div class="endpoint"><span class="method">GET</span><span class="path">/api/v1/events</span></div>

    <h2>Query parameters</h2>
    <table>
      <tr><th>Name</th><th>Description</th></tr>
      <tr><td><code>feeds</code></td><td>Comma separated event kinds to receive. Omit for all.</td></tr>
      <tr><td><code>last_event_id</code></td><td>Resume after this id. The <code>Last-Event-ID</code> header sent by reconnecting browsers takes precedence.</td></tr>
    </table>
    <p>The server keeps the last 128 events. A resume id older than that replays everything still held.</p>

    <h2>Event kinds</h2>
    <table>
      <tr><th>Kind</th><th>Emitted when</th></tr>
      <tr><td><code>crosshair</code></td><td>A cursor sample was applied to the source chart and mirrored to <code>peers</code> charts.</td></tr>
      <tr><td><code>reset</code></td><td>A click cleared the guides, trend line and readout on the source and its peers.</td></tr>
      <tr><td><code>scroll</code></td><td>A user scroll moved <code>peers</code> charts to the same first visible bar.</td></tr>
      <tr><td><code>evict</code></td><td>A peer failed while being updated and was dropped from the registry.</td></tr>
      <tr><td><code>history_exhausted</code></td><td>A peer had no bars old enough to show the requested time.</td></tr>
    </table>

    <h2>Frame format</h2>
    <pre><code>id: 42
event: crosshair
data: {"kind":"crosshair","key":"FX:EURUSD_60_Candles","instance_id":"…","time":"2024-03-04T12:00:00Z","price":1.10123,"peers":2}
</code></pre>
    <p>Idle streams receive a <code>: ping</code> comment on every heartbeat. Slow clients lose events rather than delaying the charts.</p>

    <h2>Example</h2>
    <pre><code>curl -N 'http://127.0.0.1:8188/api/v1/events?feeds=crosshair,scroll'</code></pre>
  </main>
</body>
</html>`
