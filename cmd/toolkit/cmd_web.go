package main

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/skgsergio/picolog-toolkit/lib/datalogger"
	"github.com/spf13/cobra"
)

//go:embed webui
var webuiFS embed.FS

var (
	webPortFlag string
	webAddrFlag string
)

var webCmd = &cobra.Command{
	Use:   "web",
	Short: "Start web server with UI for device interaction",
	Long: `Start a web server that serves a UI for managing the data logger.
Device commands run in the background; the page stays responsive and a
running command can be canceled.`,
	Run: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("address") {
			cfg.WebAddress = webAddrFlag
		}
		if cmd.Flags().Changed("web-port") {
			cfg.WebPort = webPortFlag
		}
		// Clients share the device; invocations must not overlap
		device := newDeviceWithRunner(datalogger.Exclusive(datalogger.NewExecRunner(cfg.Tool)))
		executeWeb(cmd.Context(), device, cfg.WebAddress, cfg.WebPort)
	},
}

func init() {
	webCmd.Flags().StringVarP(&webAddrFlag, "address", "a", "localhost", "Address to bind the web server")
	webCmd.Flags().StringVarP(&webPortFlag, "web-port", "w", "8080", "Port for the web server")
	rootCmd.AddCommand(webCmd)
}

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Server binds to localhost by default
	},
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Command string          `json:"command"`
	ID      string          `json:"id,omitempty"` // Echoed back so the page can match replies
	Data    json.RawMessage `json:"data,omitempty"`
}

// WSResponse represents a WebSocket response
type WSResponse struct {
	Command string           `json:"command"`
	ID      string           `json:"id,omitempty"`
	Task    string           `json:"task,omitempty"`
	Pending bool             `json:"pending,omitempty"` // Task accepted, result follows
	Success bool             `json:"success"`
	Kind    *datalogger.Kind `json:"kind,omitempty"`
	Error   string           `json:"error,omitempty"`
	Data    interface{}      `json:"data,omitempty"`
}

// DownloadRequest represents the data for a download command
type DownloadRequest struct {
	Files []string `json:"files"`
}

// CancelRequest represents the data for a cancel command
type CancelRequest struct {
	Task string `json:"task"`
}

// DownloadReport is the data of a download response
type DownloadReport struct {
	Outcome   datalogger.BatchOutcome `json:"outcome"`
	Succeeded []string                `json:"succeeded"`
	Failed    []DownloadFailure       `json:"failed"`
}

// DownloadFailure describes one failed file
type DownloadFailure struct {
	Name  string          `json:"name"`
	Kind  datalogger.Kind `json:"kind"`
	Error string          `json:"error"`
}

// Client represents a WebSocket client connection
type Client struct {
	conn   *websocket.Conn
	device *datalogger.Datalogger
	tasks  *datalogger.Dispatcher
	mu     sync.Mutex
}

func executeWeb(ctx context.Context, device *datalogger.Datalogger, addr, port string) {
	// Serve static files from embedded webui directory
	staticFS, err := fs.Sub(webuiFS, "webui")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to access webui directory")
	}

	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.FS(staticFS)))
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(ctx, device, w, r)
	})

	listenAddr := fmt.Sprintf("%s:%s", addr, port)
	server := &http.Server{Addr: listenAddr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	fmt.Printf("Starting web server on http://%s\n", listenAddr)
	fmt.Printf("Press Ctrl+C to stop the server\n")

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("failed to start web server")
	}
}

func handleWebSocket(ctx context.Context, device *datalogger.Datalogger, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{
		conn:   conn,
		device: device,
		tasks:  datalogger.NewDispatcher(ctx),
	}

	done := make(chan struct{})
	forwarded := make(chan struct{})
	go func() {
		client.forwardResults()
		close(forwarded)
	}()
	go client.pushComputerTime(done)

	defer func() {
		close(done)
		client.tasks.Close()
		<-forwarded
		conn.Close()
	}()

	log := logger.With().Str("remote", r.RemoteAddr).Logger()
	log.Info().Msg("websocket client connected")

	client.startWaitForDevice()

	for {
		var msg WSMessage
		err := conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Msg("websocket error")
			}
			break
		}

		client.handleMessage(msg)
	}

	log.Info().Msg("websocket client disconnected")
}

func (c *Client) handleMessage(msg WSMessage) {
	switch msg.Command {
	case "list-serial":
		c.handleListSerial(msg)
	case "list-files":
		c.submit(msg, func(ctx context.Context) WSResponse {
			listing := c.device.ListFiles(ctx)
			return resultResponse(msg, listing.Result, listing.Files)
		})
	case "download":
		c.handleDownload(msg)
	case "read-clock":
		c.submit(msg, func(ctx context.Context) WSResponse {
			reading := c.device.ReadClock(ctx)
			var data interface{}
			if reading.OK() {
				data = reading.String()
			}
			return resultResponse(msg, reading.Result, data)
		})
	case "set-clock":
		c.submit(msg, func(ctx context.Context) WSResponse {
			return resultResponse(msg, c.device.SetClock(ctx), nil)
		})
	case "check":
		c.submit(msg, func(ctx context.Context) WSResponse {
			connected := c.device.CheckConnection(ctx)
			return WSResponse{Command: msg.Command, ID: msg.ID, Success: true, Data: connected}
		})
	case "build-metadata":
		c.handleBuildMetadata(msg)
	case "import-metadata":
		c.handleImportMetadata(msg)
	case "upload-metadata":
		c.handleUploadMetadata(msg)
	case "cancel":
		c.handleCancel(msg)
	default:
		c.sendResponse(WSResponse{
			Command: msg.Command,
			ID:      msg.ID,
			Success: false,
			Error:   fmt.Sprintf("unknown command: %s", msg.Command),
		})
	}
}

// submit runs a device command in the background. The page is told the
// task ID first; the result follows from forwardResults.
func (c *Client) submit(msg WSMessage, fn func(ctx context.Context) WSResponse) {
	// The write lock is held until the ack is out so the task's result
	// cannot reach the page first
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.tasks.Submit(msg.Command, func(ctx context.Context) any {
		return fn(ctx)
	})

	c.write(WSResponse{
		Command: msg.Command,
		ID:      msg.ID,
		Task:    id,
		Pending: true,
		Success: true,
	})
}

// forwardResults sends task results to the page until the dispatcher is
// closed
func (c *Client) forwardResults() {
	for res := range c.tasks.Results() {
		resp, ok := res.Value.(WSResponse)
		if !ok {
			continue
		}
		resp.Task = res.ID
		c.sendResponse(resp)
	}
}

func (c *Client) pushComputerTime(done <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case now := <-ticker.C:
			c.sendResponse(WSResponse{
				Command: "computer-time",
				Success: true,
				Data:    now.Format("2006-01-02 15:04:05"),
			})
		}
	}
}

// startWaitForDevice soft-resets the device every second until one answers
func (c *Client) startWaitForDevice() {
	msg := WSMessage{Command: "device-ready"}
	c.submit(msg, func(ctx context.Context) WSResponse {
		res := c.device.WaitForDevice(ctx, time.Second, func(attempt int) {
			logger.Debug().Int("attempt", attempt).Msg("no device found")
		})
		return resultResponse(msg, res, nil)
	})
}

func (c *Client) handleListSerial(msg WSMessage) {
	ports, err := datalogger.ListPorts()
	if err != nil {
		c.sendResponse(WSResponse{
			Command: msg.Command,
			ID:      msg.ID,
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	c.sendResponse(WSResponse{
		Command: msg.Command,
		ID:      msg.ID,
		Success: true,
		Data:    ports,
	})
}

func (c *Client) handleDownload(msg WSMessage) {
	var req DownloadRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		c.sendError(msg, fmt.Sprintf("invalid download request: %v", err))
		return
	}
	if len(req.Files) == 0 {
		c.sendError(msg, "Please select one or more files to download.")
		return
	}

	c.submit(msg, func(ctx context.Context) WSResponse {
		batch := c.device.DownloadFiles(ctx, req.Files, nil)

		report := DownloadReport{
			Outcome:   batch.Outcome(),
			Succeeded: batch.Succeeded,
			Failed:    make([]DownloadFailure, 0, len(batch.Failed)),
		}
		for _, f := range batch.Failed {
			report.Failed = append(report.Failed, DownloadFailure{
				Name:  f.Name,
				Kind:  f.Result.Kind,
				Error: f.Result.Message(),
			})
		}

		return WSResponse{
			Command: msg.Command,
			ID:      msg.ID,
			Success: report.Outcome == datalogger.BatchComplete,
			Data:    report,
		}
	})
}

// buildMetadata decodes a form and builds the record, replying with the
// validation error if it fails
func (c *Client) buildMetadata(msg WSMessage) (*datalogger.SensorMetadata, bool) {
	var form datalogger.Form
	if err := json.Unmarshal(msg.Data, &form); err != nil {
		c.sendError(msg, fmt.Sprintf("invalid form: %v", err))
		return nil, false
	}

	m, err := form.Build(time.Now())
	if err != nil {
		kind := datalogger.KindInvalid
		c.sendResponse(WSResponse{
			Command: msg.Command,
			ID:      msg.ID,
			Success: false,
			Kind:    &kind,
			Error:   err.Error(),
		})
		return nil, false
	}

	return m, true
}

func (c *Client) handleBuildMetadata(msg WSMessage) {
	m, ok := c.buildMetadata(msg)
	if !ok {
		return
	}

	doc, err := m.JSON()
	if err != nil {
		c.sendError(msg, err.Error())
		return
	}

	c.sendResponse(WSResponse{
		Command: msg.Command,
		ID:      msg.ID,
		Success: true,
		Data:    json.RawMessage(doc),
	})
}

func (c *Client) handleImportMetadata(msg WSMessage) {
	m, err := datalogger.ParseMetadata(msg.Data)
	if err != nil {
		c.sendError(msg, err.Error())
		return
	}

	c.sendResponse(WSResponse{
		Command: msg.Command,
		ID:      msg.ID,
		Success: true,
		Data:    datalogger.FormFromMetadata(m),
	})
}

func (c *Client) handleUploadMetadata(msg WSMessage) {
	m, ok := c.buildMetadata(msg)
	if !ok {
		return
	}

	c.submit(msg, func(ctx context.Context) WSResponse {
		if res := c.device.Probe(ctx); !res.OK() {
			return resultResponse(msg, res, nil)
		}
		return resultResponse(msg, c.device.UploadMetadata(ctx, m), c.device.Options().MetadataName)
	})
}

func (c *Client) handleCancel(msg WSMessage) {
	var req CancelRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		c.sendError(msg, fmt.Sprintf("invalid cancel request: %v", err))
		return
	}

	c.sendResponse(WSResponse{
		Command: msg.Command,
		ID:      msg.ID,
		Success: c.tasks.Cancel(req.Task),
	})
}

// resultResponse converts a device result into a response
func resultResponse(msg WSMessage, res datalogger.Result, data interface{}) WSResponse {
	kind := res.Kind
	resp := WSResponse{
		Command: msg.Command,
		ID:      msg.ID,
		Success: res.OK(),
		Kind:    &kind,
	}
	if res.OK() {
		resp.Data = data
	} else {
		resp.Error = res.Message()
	}
	return resp
}

func (c *Client) sendError(msg WSMessage, text string) {
	c.sendResponse(WSResponse{
		Command: msg.Command,
		ID:      msg.ID,
		Success: false,
		Error:   text,
	})
}

func (c *Client) sendResponse(resp WSResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.write(resp)
}

// write sends resp; c.mu must be held
func (c *Client) write(resp WSResponse) {
	if err := c.conn.WriteJSON(resp); err != nil {
		logger.Debug().Err(err).Str("command", resp.Command).Msg("failed to send websocket response")
	}
}
