package web

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/achernar/stardust/log"
	"github.com/achernar/stardust/renderer"
	"github.com/achernar/stardust/scene"
	"github.com/achernar/stardust/types"
	"github.com/gorilla/websocket"
)

const (
	// Broadcast rate used when the caller does not specify one.
	defaultFps = 20

	// Radians of orbit rotation per dragged pixel.
	orbitSensitivity float32 = 0.005

	// Camera distance change per wheel delta unit.
	zoomSensitivity float32 = 0.05

	// Orbit camera limits.
	maxPitch float32 = 1.45
	minDist  float32 = 8.0
	maxDist  float32 = 160.0
)

var upgrader = websocket.Upgrader{
	// The viewer page may be served from a different origin during
	// development.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Server streams tone-mapped frames to browser viewers over a websocket and
// applies their orbit/zoom camera messages to the scene. Frames are rendered
// on demand: the render loop idles while no viewer is connected.
type Server struct {
	logger log.Logger

	addr string

	r  renderer.Renderer
	sc *scene.Scene

	// The delay between broadcast frames.
	frameInterval time.Duration

	// Guards the client set and the orbit camera state; held while a
	// frame renders so control messages never mutate the camera
	// mid-frame.
	sync.Mutex
	clients map[*websocket.Conn]struct{}

	// Orbit camera state: the camera circles target at distance dist.
	target types.Vec3
	yaw    float32
	pitch  float32
	dist   float32
}

// Create a new viewer server for the given renderer and scene. The camera
// orbits the center of the fixed particle volume; the initial orbit state is
// derived from the scene camera position so the first broadcast frame matches
// the configured view.
func NewServer(addr string, r renderer.Renderer, sc *scene.Scene, fps int) *Server {
	if fps <= 0 {
		fps = defaultFps
	}

	s := &Server{
		logger:        log.New("web"),
		addr:          addr,
		r:             r,
		sc:            sc,
		frameInterval: time.Second / time.Duration(fps),
		clients:       make(map[*websocket.Conn]struct{}),
		target:        types.Vec3{},
	}

	offset := sc.Camera.Position.Sub(s.target)
	s.dist = offset.Len()
	if s.dist < minDist {
		s.dist = minDist
	}
	s.pitch = float32(math.Asin(float64(offset[1] / s.dist)))
	s.yaw = float32(math.Atan2(float64(offset[0]), float64(offset[2])))

	return s
}

// Serve starts the render loop and blocks serving the viewer page and its
// websocket endpoint.
func (s *Server) Serve() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.serveHome)
	mux.HandleFunc("/ws", s.handleSocket)

	go s.renderLoop()

	s.logger.Noticef("serving viewer on http://%s", s.addr)
	return http.ListenAndServe(s.addr, mux)
}

func (s *Server) serveHome(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, viewerPage)
}

func (s *Server) handleSocket(w http.ResponseWriter, req *http.Request) {
	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		s.logger.Warningf("websocket upgrade failed: %v", err)
		return
	}

	s.Lock()
	s.clients[conn] = struct{}{}
	s.Unlock()
	s.logger.Noticef("viewer connected from %s", conn.RemoteAddr())

	defer func() {
		s.Lock()
		delete(s.clients, conn)
		s.Unlock()
		conn.Close()
		s.logger.Noticef("viewer from %s disconnected", conn.RemoteAddr())
	}()

	for {
		var msg map[string]interface{}
		if err = conn.ReadJSON(&msg); err != nil {
			return
		}
		s.handleControl(msg)
	}
}

// Apply a viewer control message to the orbit camera.
func (s *Server) handleControl(msg map[string]interface{}) {
	s.Lock()
	defer s.Unlock()

	updated := false
	if orbit, ok := msg["orbit"].(map[string]interface{}); ok {
		dx, _ := orbit["dx"].(float64)
		dy, _ := orbit["dy"].(float64)
		s.yaw += float32(dx) * orbitSensitivity
		s.pitch = clamp(s.pitch+float32(dy)*orbitSensitivity, -maxPitch, maxPitch)
		updated = true
	}
	if zoom, ok := msg["zoom"].(float64); ok {
		s.dist = clamp(s.dist+float32(zoom)*zoomSensitivity, minDist, maxDist)
		updated = true
	}

	if updated {
		s.positionCamera()
	}
}

// Place the scene camera on its orbit sphere and push the change to the
// renderer. Must be called while holding s.Lock().
func (s *Server) positionCamera() {
	sinYaw, cosYaw := math.Sincos(float64(s.yaw))
	sinPitch, cosPitch := math.Sincos(float64(s.pitch))

	s.sc.Camera.Position = s.target.Add(types.Vec3{
		s.dist * float32(cosPitch*sinYaw),
		s.dist * float32(sinPitch),
		s.dist * float32(cosPitch*cosYaw),
	})
	s.sc.Camera.LookAt = s.target
	s.sc.Camera.Update()

	s.r.UpdateCamera()
}

// Render and broadcast frames while at least one viewer is connected.
func (s *Server) renderLoop() {
	ticker := time.NewTicker(s.frameInterval)
	defer ticker.Stop()

	for range ticker.C {
		s.Lock()
		if len(s.clients) == 0 {
			s.Unlock()
			continue
		}

		if err := s.r.Render(); err != nil {
			s.Unlock()
			s.logger.Errorf("render error: %v", err)
			return
		}

		frame, err := s.encodeFrame()
		s.Unlock()
		if err != nil {
			s.logger.Errorf("frame encode error: %v", err)
			continue
		}

		s.broadcast(frame)
	}
}

// Encode the film's RGBA plane as a PNG. Must be called while holding
// s.Lock() so the film is not concurrently written by the next frame.
func (s *Server) encodeFrame() ([]byte, error) {
	film := s.r.Film()
	im := image.NewRGBA(image.Rect(0, 0, int(film.Width), int(film.Height)))
	copy(im.Pix, film.FrameBuffer)

	var buf bytes.Buffer
	if err := png.Encode(&buf, im); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Send a binary frame to every connected viewer, dropping the ones whose
// connection fails. The render loop is the only frame writer so no per
// connection write lock is needed.
func (s *Server) broadcast(frame []byte) {
	s.Lock()
	defer s.Unlock()

	for conn := range s.clients {
		if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			s.logger.Warningf("dropping viewer %s: %v", conn.RemoteAddr(), err)
			conn.Close()
			delete(s.clients, conn)
		}
	}
}

func clamp(v, min, max float32) float32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
