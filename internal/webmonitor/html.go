package webmonitor

const indexHTML = `
<!DOCTYPE html>
<html>
<head>
    <title>Pilot Drowsiness Monitor</title>
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <style>
        body { margin: 0; font-family: system-ui, sans-serif; background: #111418; color: #e8e8e8; }
        .app { max-width: 1200px; margin: 0 auto; padding: 16px; }
        .header { display: flex; justify-content: space-between; align-items: center; }
        .title { font-size: 1.6rem; font-weight: 600; }
        .grid { display: grid; grid-template-columns: 2fr 1fr; gap: 16px; margin-top: 16px; }
        .panel { background: #1b1f25; border-radius: 8px; padding: 14px; }
        .panel h2 { margin: 0 0 10px; font-size: 1.1rem; }
        #stream { width: 100%; height: auto; background: #000; border-radius: 4px; }
        .alert-box { padding: 18px; border-radius: 8px; text-align: center; font-size: 1.3rem; font-weight: 700; }
        .status-safe { background: #1e5f2f; }
        .status-alert { background: #b3261e; animation: blink 0.8s infinite; }
        .status-idle { background: #3a3f47; }
        @keyframes blink { 50% { opacity: 0.6; } }
        .metrics { display: grid; grid-template-columns: 1fr 1fr; gap: 10px; margin-top: 12px; }
        .metric { background: #242931; border-radius: 6px; padding: 10px; }
        .metric .label { font-size: 0.8rem; color: #9aa0a6; }
        .metric .value { font-size: 1.6rem; font-weight: 600; }
        .buttons { display: grid; grid-template-columns: repeat(3, 1fr); gap: 10px; margin-top: 12px; }
        button { padding: 10px; border: 0; border-radius: 6px; background: #2f6feb; color: #fff; font-size: 0.95rem; cursor: pointer; }
        button:disabled { background: #3a3f47; color: #777; cursor: default; }
        button.secondary { background: #3a3f47; }
        label { display: block; margin-top: 10px; font-size: 0.9rem; }
        input[type=range], select { width: 100%; }
        .hint { font-size: 0.75rem; color: #9aa0a6; }
        .history { list-style: none; padding: 0; margin: 0; font-size: 0.85rem; }
        .history li { padding: 4px 0; border-bottom: 1px solid #2a2f36; }
        .error { color: #ff8a80; font-size: 0.85rem; min-height: 1.2em; margin-top: 8px; }
        details { margin-top: 16px; }
        .footer { margin-top: 20px; font-size: 0.75rem; color: #777; text-align: center; }
    </style>
</head>
<body>
    <div class="app">
        <div class="header">
            <div class="title">✈️ Pilot Drowsiness Monitor</div>
            <span id="conn">connecting...</span>
        </div>

        <div class="grid">
            <div class="panel">
                <h2>📹 Live Camera Feed</h2>
                <img id="stream" src="/stream" alt="Live camera feed">
                <div class="buttons">
                    <button id="btn-start">▶️ Start Detection</button>
                    <button id="btn-stop" class="secondary" disabled>⏹️ Stop Detection</button>
                    <button id="btn-reset" class="secondary">🔄 Reset Camera</button>
                </div>
                <div class="error" id="error"></div>
            </div>

            <div>
                <div class="panel">
                    <h2>📊 Status</h2>
                    <div id="status-box" class="alert-box status-idle">⏸️ Detection stopped</div>
                    <div class="metrics">
                        <div class="metric"><div class="label">Total Alerts</div><div class="value" id="total-alerts">0</div></div>
                        <div class="metric"><div class="label">Eyes Detected</div><div class="value" id="eyes">0</div></div>
                        <div class="metric"><div class="label">Faces</div><div class="value" id="faces">0</div></div>
                        <div class="metric"><div class="label">FPS</div><div class="value" id="fps">0</div></div>
                    </div>
                </div>

                <div class="panel" style="margin-top:16px;">
                    <h2>⚙️ Settings</h2>
                    <form id="settings">
                        <label>Eye Closed Time Threshold: <span id="threshold-value">1.5</span>s
                            <input type="range" id="threshold" min="0.5" max="5.0" step="0.5" value="1.5">
                        </label>
                        <div class="hint">Lower = faster alert, higher = more delay</div>
                        <label>Camera Source
                            <select id="camera"><option>0</option><option>1</option><option>2</option></select>
                        </label>
                        <label><input type="checkbox" id="sound" checked> 🔊 Enable Alarm Sound</label>
                        <label>Eye Detection Sensitivity: <span id="sensitivity-value">2</span>
                            <input type="range" id="sensitivity" min="1" max="10" step="1" value="2">
                        </label>
                        <div class="hint">Lower = more sensitive, higher = fewer false alarms</div>
                        <button type="submit" style="margin-top:10px;width:100%;">Apply</button>
                        <div class="hint" id="settings-note"></div>
                    </form>
                </div>

                <div class="panel" style="margin-top:16px;">
                    <h2>🚨 Recent Alerts</h2>
                    <ul class="history" id="history"><li>No alerts yet</li></ul>
                </div>
            </div>
        </div>

        <details>
            <summary>ℹ️ How to Use</summary>
            <ol>
                <li>Click <b>Start Detection</b> to begin monitoring.</li>
                <li>The system detects your face and eyes in real time.</li>
                <li>If your eyes stay closed longer than the threshold, an alert is raised.</li>
                <li>Adjust the threshold and sensitivity in Settings; changes apply to the next session.</li>
                <li>Click <b>Stop Detection</b> to end the session and release the camera.</li>
            </ol>
        </details>

        <div class="footer">Pilot Drowsiness Monitor · face and eye cascade detection</div>
    </div>

    <audio id="alarm" src="/assets/alarm.wav" preload="auto" loop></audio>

    <script>
    const $ = (id) => document.getElementById(id);
    const alarm = $('alarm');
    let settingsLoaded = false;

    function showError(msg) { $('error').textContent = msg || ''; }

    async function post(path, body) {
        const res = await fetch(path, {
            method: 'POST',
            headers: {'Content-Type': 'application/json'},
            body: body ? JSON.stringify(body) : undefined,
        });
        const data = await res.json().catch(() => ({}));
        if (!res.ok) throw new Error(data.error || res.statusText);
        return data;
    }

    function render(status) {
        const s = status.session || {};
        const d = status.drowsiness || {};
        $('btn-start').disabled = !!s.running;
        $('btn-stop').disabled = !s.running;

        const box = $('status-box');
        if (!s.running) {
            box.className = 'alert-box status-idle';
            box.textContent = s.last_error ? '❌ ' + s.last_error : '⏸️ Detection stopped';
        } else if (d.alerting) {
            box.className = 'alert-box status-alert';
            box.textContent = d.label;
        } else {
            box.className = 'alert-box status-safe';
            box.textContent = d.label;
        }
        $('total-alerts').textContent = d.total_alerts || 0;
        $('eyes').textContent = d.eyes_detected || 0;
        $('faces').textContent = d.faces || 0;
        $('fps').textContent = (d.current_fps || 0).toFixed(1);

        if (d.play_alarm) {
            if (alarm.paused) alarm.play().catch(() => {});
        } else if (!alarm.paused) {
            alarm.pause();
            alarm.currentTime = 0;
        }

        const history = status.alert_history || [];
        $('history').innerHTML = history.length === 0 ? '<li>No alerts yet</li>' :
            history.map((e) => '<li>' + new Date(e.timestamp).toLocaleTimeString() +
                ' · alert #' + e.total_alerts + ' · closed ' + (e.closed_for_ms / 1000).toFixed(1) + 's</li>').join('');

        if (!settingsLoaded && status.settings) {
            loadSettings(status.settings);
            settingsLoaded = true;
        }
    }

    function loadSettings(st) {
        $('threshold').value = st.threshold_seconds;
        $('threshold-value').textContent = st.threshold_seconds;
        $('sensitivity').value = st.eye_sensitivity;
        $('sensitivity-value').textContent = st.eye_sensitivity;
        $('camera').value = String(st.camera_index);
        $('sound').checked = st.sound_enabled;
    }

    $('threshold').oninput = (e) => { $('threshold-value').textContent = e.target.value; };
    $('sensitivity').oninput = (e) => { $('sensitivity-value').textContent = e.target.value; };

    $('settings').onsubmit = async (e) => {
        e.preventDefault();
        try {
            const res = await post('/api/settings', {
                threshold_seconds: parseFloat($('threshold').value),
                eye_sensitivity: parseInt($('sensitivity').value, 10),
                camera_index: parseInt($('camera').value, 10),
                sound_enabled: $('sound').checked,
            });
            $('settings-note').textContent = res.next_session ? 'Saved; applies to the next session.' : 'Saved.';
            showError('');
        } catch (err) { showError(err.message); }
    };

    $('btn-start').onclick = async () => {
        try { await post('/api/session/start'); showError(''); } catch (err) { showError(err.message); }
    };
    $('btn-stop').onclick = async () => {
        try { await post('/api/session/stop'); showError(''); } catch (err) { showError(err.message); }
    };
    $('btn-reset').onclick = async () => {
        try { await post('/api/session/reset'); showError(''); } catch (err) { showError(err.message); }
    };

    function connect() {
        const es = new EventSource('/api/status/stream');
        es.onopen = () => { $('conn').textContent = '● live'; };
        es.onmessage = (e) => { try { render(JSON.parse(e.data)); } catch (_) {} };
        es.onerror = () => {
            $('conn').textContent = '○ reconnecting...';
            es.close();
            setTimeout(connect, 2000);
        };
    }
    connect();
    </script>
</body>
</html>
`
