// cmd/monitor is a host-side operations console: it subscribes to a
// board's MQTT status topic (the counterpart to internal/telemetry's
// firmware-side publisher) and mirrors the live feed to browser tabs
// over a websocket, for bench monitoring of one or more curtains.
package main

import (
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/net/websocket"
)

var (
	broker   = flag.String("broker", "tcp://localhost:1883", "MQTT broker URL")
	topic    = flag.String("topic", "fyrtur/status", "status topic to subscribe to")
	httpAddr = flag.String("http", ":8080", "address to serve the live dashboard on")
)

// hub fans the latest status payload out to every connected websocket
// client, mirroring EdgxCloud-EdgeFlow's MQTTOutExecutor connection
// bookkeeping but in the listening direction.
type hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]chan []byte
}

func newHub() *hub {
	return &hub{clients: make(map[*websocket.Conn]chan []byte)}
}

func (h *hub) broadcast(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.clients {
		select {
		case ch <- payload:
		default: // drop if the client's slow; it'll get the next tick
		}
	}
}

func (h *hub) serveWS(ws *websocket.Conn) {
	ch := make(chan []byte, 4)
	h.mu.Lock()
	h.clients[ws] = ch
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, ws)
		h.mu.Unlock()
		ws.Close()
	}()

	for payload := range ch {
		if _, err := ws.Write(payload); err != nil {
			return
		}
	}
}

func main() {
	flag.Parse()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	h := newHub()

	opts := mqtt.NewClientOptions().AddBroker(*broker).SetClientID("fyrtur-monitor").SetAutoReconnect(true)
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		logger.Info("connected to broker", "broker", *broker)
	})
	opts.SetConnectionLostHandler(func(c mqtt.Client, err error) {
		logger.Warn("lost connection to broker", "error", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		logger.Error("connect failed", "error", token.Error())
		os.Exit(1)
	}
	defer client.Disconnect(250)

	subToken := client.Subscribe(*topic, 0, func(c mqtt.Client, m mqtt.Message) {
		var status map[string]any
		if err := json.Unmarshal(m.Payload(), &status); err != nil {
			logger.Warn("dropping malformed status frame", "error", err)
			return
		}
		logger.Info("status", "topic", m.Topic(), "position_percent", status["position_percent"], "status", status["status"])
		h.broadcast(m.Payload())
	})
	if subToken.Wait() && subToken.Error() != nil {
		logger.Error("subscribe failed", "error", subToken.Error())
		os.Exit(1)
	}

	http.Handle("/ws", websocket.Handler(h.serveWS))
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(dashboardHTML))
	})

	logger.Info("serving dashboard", "addr", *httpAddr)
	if err := http.ListenAndServe(*httpAddr, nil); err != nil {
		logger.Error("http server exited", "error", err)
		os.Exit(1)
	}
}

const dashboardHTML = `<!doctype html>
<html><head><title>fyrtur monitor</title></head>
<body>
<pre id="status">waiting for status...</pre>
<script>
  var ws = new WebSocket("ws://" + location.host + "/ws");
  ws.onmessage = function(ev) {
    document.getElementById("status").textContent = ev.data;
  };
</script>
</body></html>`
