package main

import (
	"flag"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotornet/rotorsim/simulator"
)

// Virtual microseconds advanced per UI tick
const stepPerTickUs = 10000.0

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins for development
		return true
	},
}

// ClientMessage is what the browser sends over the websocket
type ClientMessage struct {
	Type   string               `json:"type"`
	Config *simulator.SimConfig `json:"config,omitempty"`
}

// ServerMessage is what the server broadcasts
type ServerMessage struct {
	Type     string               `json:"type"`
	Running  *bool                `json:"running,omitempty"`
	Finished *bool                `json:"finished,omitempty"`
	Config   *simulator.SimConfig `json:"config,omitempty"`
	Progress *simulator.Progress  `json:"progress,omitempty"`
}

// simState manages the paced simulation. The simulator itself is
// single-threaded; every access goes through the mutex.
type simState struct {
	mu       sync.Mutex
	config   simulator.SimConfig
	sim      *simulator.Simulator
	running  bool
	finished bool
}

func newSimState(config simulator.SimConfig) (*simState, error) {
	s := &simState{config: config}
	if err := s.rebuild(); err != nil {
		return nil, err
	}
	return s, nil
}

// rebuild constructs a fresh simulator and workload from the current config
func (s *simState) rebuild() error {
	sim, err := simulator.NewSimulator(s.config)
	if err != nil {
		return err
	}
	var flows []*simulator.Flow
	if s.config.FlowFile != "" {
		flows, err = simulator.LoadFlowsFromFile(s.config.FlowFile)
		if err != nil {
			return err
		}
	} else {
		flows = simulator.NewWorkloadGenerator(s.config).GenerateFlows()
	}
	sim.AddFlows(flows)
	s.sim = sim
	s.finished = false
	return nil
}

func (s *simState) start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.finished {
		s.running = true
	}
}

func (s *simState) pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
}

func (s *simState) reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	return s.rebuild()
}

func (s *simState) updateConfig(config simulator.SimConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := config.Validate(); err != nil {
		return err
	}
	s.config = config
	s.running = false
	return s.rebuild()
}

// step advances a running simulation by one tick; returns the fresh progress
func (s *simState) step() (simulator.Progress, bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running && !s.finished {
		s.sim.StepUntil(s.sim.VirtualTimeUs() + stepPerTickUs)
		if s.sim.Done() {
			s.running = false
			s.finished = true
			s.sim.Finalize().Print()
		}
	}
	return s.sim.Progress(), s.running, s.finished
}

func (s *simState) snapshot() (simulator.SimConfig, simulator.Progress, bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config, s.sim.Progress(), s.running, s.finished
}

// hub tracks connected websocket clients for broadcast
type hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

func newHub() *hub {
	return &hub{clients: make(map[*websocket.Conn]bool)}
}

func (h *hub) add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = true
}

func (h *hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
	conn.Close()
}

func (h *hub) broadcast(msg ServerMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteJSON(msg); err != nil {
			delete(h.clients, conn)
			conn.Close()
		}
	}
}

var (
	state         *simState
	clients       = newHub()
	indexTemplate = template.Must(template.New("index").Parse(indexHTML))
)

func serveHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if err := indexTemplate.Execute(w, nil); err != nil {
		log.Printf("Error executing template: %v", err)
	}
}

func handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Websocket upgrade failed: %v", err)
		return
	}
	clients.add(conn)
	defer clients.remove(conn)

	// Greet the client with the current state
	config, progress, running, finished := state.snapshot()
	_ = conn.WriteJSON(ServerMessage{
		Type: "state", Running: &running, Finished: &finished,
		Config: &config, Progress: &progress,
	})

	for {
		var msg ClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("Websocket read error: %v", err)
			}
			return
		}
		switch msg.Type {
		case "start":
			state.start()
		case "pause":
			state.pause()
		case "reset":
			if err := state.reset(); err != nil {
				log.Printf("Reset failed: %v", err)
			}
		case "setConfig":
			if msg.Config != nil {
				if err := state.updateConfig(*msg.Config); err != nil {
					log.Printf("Config update rejected: %v", err)
				}
			}
		default:
			log.Printf("Unknown client message type: %q", msg.Type)
		}
	}
}

// updateLoop paces the simulation and broadcasts progress
func updateLoop() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		progress, running, finished := state.step()
		updatePrometheusMetrics(&progress)
		clients.broadcast(ServerMessage{
			Type: "progress", Running: &running, Finished: &finished,
			Progress: &progress,
		})
	}
}

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	configFile := flag.String("config", "", "Path to key/value configuration file")
	flag.Parse()

	config := simulator.DefaultConfig()
	if *configFile != "" {
		var err error
		config, err = simulator.LoadConfig(*configFile)
		if err != nil {
			log.Fatalf("Error loading config: %v", err)
		}
	}

	var err error
	state, err = newSimState(config)
	if err != nil {
		log.Fatalf("Error creating simulator: %v", err)
	}

	initPrometheusMetrics()

	http.HandleFunc("/", serveHome)
	http.HandleFunc("/ws", handleWebSocket)
	http.Handle("/metrics", promhttp.Handler())

	go updateLoop()

	fmt.Printf("rotorview listening on %s\n", *addr)
	log.Fatal(http.ListenAndServe(*addr, nil))
}

const indexHTML = `<!DOCTYPE html>
<html>
<head><title>rotorview</title></head>
<body>
<h2>RotorNet simulation</h2>
<button onclick="send('start')">Start</button>
<button onclick="send('pause')">Pause</button>
<button onclick="send('reset')">Reset</button>
<pre id="out">connecting...</pre>
<script>
const ws = new WebSocket("ws://" + location.host + "/ws");
const out = document.getElementById("out");
ws.onmessage = (e) => { out.textContent = JSON.stringify(JSON.parse(e.data), null, 2); };
function send(type) { ws.send(JSON.stringify({type})); }
</script>
</body>
</html>
`
