package remote

const indexHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>lull</title>
  <style>
    * { box-sizing: border-box; }
    body { margin: 0; padding: 16px; background: #111820; color: #dde; font-family: system-ui, sans-serif; }
    h1 { font-size: 20px; margin: 0 0 4px; color: #8cf; }
    h2 { font-size: 13px; letter-spacing: 1px; color: #889; margin: 20px 0 8px; }
    #status { font-size: 13px; color: #889; min-height: 18px; }
    #status.err { color: #f66; }
    .row { display: flex; align-items: center; gap: 10px; padding: 10px; margin-bottom: 6px;
           border-radius: 8px; background: #1c2530; }
    .row.on { background: #22384a; }
    .row button { flex: 1; text-align: left; background: none; border: none; color: inherit;
                  font-size: 16px; padding: 0; cursor: pointer; }
    .row small { color: #8a9; min-width: 56px; text-align: right; }
    .row input { width: 90px; }
    .bar { display: flex; gap: 8px; margin-top: 16px; flex-wrap: wrap; }
    .bar button { padding: 10px 14px; border-radius: 8px; border: 1px solid #345; background: #1c2530;
                  color: #dde; font-size: 14px; }
  </style>
</head>
<body>
  <h1>lull</h1>
  <div id="status">connecting...</div>
  <h2>BASE TRACKS</h2>
  <div id="bases"></div>
  <h2>OVERLAYS</h2>
  <div id="overlays"></div>
  <div class="bar">
    <button onclick="post('/api/toggle')">play / pause</button>
    <button onclick="post('/api/sleep?minutes=15')">sleep 15</button>
    <button onclick="post('/api/sleep?minutes=30')">sleep 30</button>
    <button onclick="post('/api/sleep?minutes=0')">no sleep</button>
    <button onclick="post('/api/reset')">stop all</button>
  </div>
<script>
const status = document.getElementById('status');
let dragging = false;

function fmt(ms) {
  const s = Math.round(ms / 1000);
  return Math.floor(s / 60) + ':' + String(s % 60).padStart(2, '0');
}

function row(s, on, label, onclick) {
  const div = document.createElement('div');
  div.className = 'row' + (on ? ' on' : '');
  const btn = document.createElement('button');
  btn.textContent = s.title || s.id;
  if (s.color) btn.style.color = s.color;
  btn.onclick = onclick;
  const state = document.createElement('small');
  state.textContent = label;
  const vol = document.createElement('input');
  vol.type = 'range'; vol.min = 0; vol.max = 1; vol.step = 0.05; vol.value = s.volume;
  vol.onpointerdown = () => { dragging = true; };
  vol.onchange = () => { dragging = false; post('/api/volume/' + encodeURIComponent(s.id) + '?v=' + vol.value); };
  div.append(btn, state, vol);
  return div;
}

function render(st) {
  if (dragging) return;
  const bases = document.getElementById('bases');
  const overlays = document.getElementById('overlays');
  bases.replaceChildren(...st.bases.map(b => {
    const active = b.id === st.activeBase;
    const label = active ? (st.basePlaying ? 'playing' : 'paused') : '';
    const url = active ? '/api/toggle' : '/api/base/' + encodeURIComponent(b.id);
    return row(b, active, label, () => post(url));
  }));
  overlays.replaceChildren(...st.overlays.map(o =>
    row(o, o.enabled, o.phase || '', () => post('/api/overlay/' + encodeURIComponent(o.id)))));
  if (!status.classList.contains('err')) {
    status.textContent = st.sleepRemainingMs > 0 ? 'sleep in ' + fmt(st.sleepRemainingMs) : '';
  }
}

async function post(url) {
  const res = await fetch(url, { method: 'POST' });
  const body = await res.json();
  if (!res.ok) {
    status.className = 'err';
    status.textContent = body.error;
    setTimeout(() => { status.className = ''; }, 4000);
    return;
  }
  render(body);
}

function connect() {
  const proto = location.protocol === 'https:' ? 'wss:' : 'ws:';
  const ws = new WebSocket(proto + '//' + location.host + '/ws');
  ws.onmessage = e => render(JSON.parse(e.data));
  ws.onclose = () => {
    status.className = 'err';
    status.textContent = 'disconnected, retrying...';
    setTimeout(connect, 2000);
  };
  ws.onopen = () => { status.className = ''; status.textContent = ''; };
}
connect();
</script>
</body>
</html>
`
