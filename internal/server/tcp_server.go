package server

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mbehrens/kalle-tracker/internal/connection"
	"github.com/mbehrens/kalle-tracker/internal/protocol"
	"github.com/mbehrens/kalle-tracker/internal/queue"
	"github.com/mbehrens/kalle-tracker/internal/timer"
	"github.com/mbehrens/kalle-tracker/pkg/config"
)

// ConnectionJob represents a job to process one line from a connection
type ConnectionJob struct {
	ConnectionID string
	DogID        string
	DogName      string
	Data         []byte
	Conn         net.Conn
	Timestamp    time.Time
}

// TCPServer accepts phone client connections and dispatches their
// messages to a worker pool. Reader goroutines stay lightweight; all
// parsing and publishing happens in the workers.
type TCPServer struct {
	config       *config.TCPServerConfig
	connManager  *connection.Manager
	timerManager *timer.Manager
	producer     *queue.Producer
	listener     net.Listener

	// Worker pool components
	jobQueue    chan *ConnectionJob
	workerCount int
	workers     []*Worker

	wg     sync.WaitGroup
	stopCh chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
}

// Worker represents a worker that processes connection jobs
type Worker struct {
	id       int
	jobQueue <-chan *ConnectionJob
	server   *TCPServer
	stopCh   <-chan struct{}
}

// NewTCPServer creates a new TCP server
func NewTCPServer(
	cfg *config.TCPServerConfig,
	connManager *connection.Manager,
	timerManager *timer.Manager,
	producer *queue.Producer,
) *TCPServer {
	ctx, cancel := context.WithCancel(context.Background())

	workerCount := cfg.WorkerCount
	if workerCount <= 0 {
		workerCount = 4 // Default 4 workers
	}

	jobQueueSize := cfg.JobQueueSize
	if jobQueueSize <= 0 {
		jobQueueSize = 100 // Default queue size
	}

	return &TCPServer{
		config:       cfg,
		connManager:  connManager,
		timerManager: timerManager,
		producer:     producer,
		jobQueue:     make(chan *ConnectionJob, jobQueueSize),
		workerCount:  workerCount,
		stopCh:       make(chan struct{}),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start starts the TCP server and worker pool
func (s *TCPServer) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start TCP server: %w", err)
	}

	s.listener = listener
	fmt.Printf("TCP server listening on %s with %d workers\n", addr, s.workerCount)

	// Start workers
	s.startWorkers()

	// Start accepting connections
	s.wg.Add(1)
	go s.acceptConnections()

	return nil
}

// Stop stops the TCP server gracefully
func (s *TCPServer) Stop() {
	fmt.Println("Stopping TCP server...")
	close(s.stopCh)
	s.cancel()

	if s.listener != nil {
		s.listener.Close()
	}

	// Wait for accept loop to finish
	s.wg.Wait()

	// Close job queue (no more jobs)
	close(s.jobQueue)

	fmt.Println("TCP server stopped")
}

// startWorkers initializes and starts worker goroutines
func (s *TCPServer) startWorkers() {
	s.workers = make([]*Worker, s.workerCount)

	for i := 0; i < s.workerCount; i++ {
		worker := &Worker{
			id:       i,
			jobQueue: s.jobQueue,
			server:   s,
			stopCh:   s.stopCh,
		}
		s.workers[i] = worker

		s.wg.Add(1)
		go worker.Start(&s.wg)
	}

	fmt.Printf("Started %d workers\n", s.workerCount)
}

// acceptConnections accepts incoming connections
func (s *TCPServer) acceptConnections() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
				fmt.Printf("Failed to accept connection: %v\n", err)
				continue
			}
		}

		// Check max connections
		if s.connManager.Count() >= s.config.MaxConnections {
			fmt.Println("Maximum connections reached, rejecting connection")
			conn.Close()
			continue
		}

		// Handle connection in a lightweight goroutine (just for reading)
		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

// handleConnection handles the identify handshake and reads from the
// connection, dispatching each line to the worker pool.
func (s *TCPServer) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	// Generate connection ID
	connectionID := uuid.New().String()
	fmt.Printf("New connection: %s from %s\n", connectionID, conn.RemoteAddr())

	// Set identify timeout
	conn.SetReadDeadline(time.Now().Add(s.config.IdentifyTimeout))

	// Read identification message
	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	if err != nil {
		fmt.Printf("Failed to read identify message: %v\n", err)
		return
	}

	// Parse identification message
	msg, err := protocol.ParseMessage([]byte(line))
	if err != nil {
		fmt.Printf("Failed to parse identify message: %v\n", err)
		s.sendError(conn)
		return
	}

	identifyMsg, ok := msg.(*protocol.IdentifyMessage)
	if !ok {
		fmt.Printf("Expected identify message, got %T\n", msg)
		s.sendError(conn)
		return
	}

	// Register client
	if err := s.connManager.Register(connectionID, identifyMsg.DogID, identifyMsg.DogName, conn); err != nil {
		fmt.Printf("Failed to register client: %v\n", err)
		s.sendError(conn)
		return
	}
	defer s.connManager.Unregister(connectionID)

	fmt.Printf("Client identified: %s (dog=%s)\n", connectionID, identifyMsg.DogName)

	// Send acknowledgment
	ack := protocol.NewAckMessage(protocol.AckStatusIdentified)
	if err := s.sendMessage(conn, ack); err != nil {
		fmt.Printf("Failed to send ack: %v\n", err)
		return
	}

	// Schedule inactivity timer
	s.scheduleInactivityTimer(connectionID)

	// Clear read deadline for normal operation
	conn.SetReadDeadline(time.Time{})

	// Read messages and dispatch to workers
	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		// Read message with a reasonable timeout
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		line, err := reader.ReadString('\n')
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				// Timeout, continue reading
				continue
			}
			// Connection closed or error
			fmt.Printf("Connection %s closed: %v\n", connectionID, err)
			return
		}

		// Create job and send to worker pool
		job := &ConnectionJob{
			ConnectionID: connectionID,
			DogID:        identifyMsg.DogID,
			DogName:      identifyMsg.DogName,
			Data:         []byte(line),
			Conn:         conn,
			Timestamp:    time.Now(),
		}

		// Non-blocking send to job queue
		select {
		case s.jobQueue <- job:
			// Job queued successfully
		case <-s.stopCh:
			return
		default:
			// Queue is full, log and drop
			fmt.Printf("Job queue full, dropping message from %s\n", connectionID)
		}

		// Update activity timestamp
		s.connManager.UpdateActivity(connectionID)

		// Reschedule inactivity timer
		s.scheduleInactivityTimer(connectionID)
	}
}

// Worker methods

// Start starts the worker
func (w *Worker) Start(wg *sync.WaitGroup) {
	defer wg.Done()
	fmt.Printf("Worker %d started\n", w.id)

	for {
		select {
		case job, ok := <-w.jobQueue:
			if !ok {
				// Channel closed, worker should exit
				fmt.Printf("Worker %d stopped\n", w.id)
				return
			}
			w.processJob(job)

		case <-w.stopCh:
			fmt.Printf("Worker %d received stop signal\n", w.id)
			return
		}
	}
}

// processJob processes a connection job
func (w *Worker) processJob(job *ConnectionJob) {
	// Parse message
	msg, err := protocol.ParseMessage(job.Data)
	if err != nil {
		fmt.Printf("Worker %d: Failed to parse message: %v\n", w.id, err)
		w.server.sendError(job.Conn)
		return
	}

	// Handle message based on type
	switch m := msg.(type) {
	case *protocol.LogEventMessage:
		if err := w.handleLogEvent(job, m); err != nil {
			fmt.Printf("Worker %d: Failed to handle log_event: %v\n", w.id, err)
			w.server.sendError(job.Conn)
		}

	case *protocol.DeleteEventMessage:
		if err := w.handleDeleteEvent(job, m); err != nil {
			fmt.Printf("Worker %d: Failed to handle delete_event: %v\n", w.id, err)
			w.server.sendError(job.Conn)
		}

	case *protocol.KeepaliveMessage:
		if err := w.handleKeepalive(job); err != nil {
			fmt.Printf("Worker %d: Failed to handle keepalive: %v\n", w.id, err)
		}

	default:
		fmt.Printf("Worker %d: Unknown message type: %T\n", w.id, msg)
	}
}

// handleLogEvent publishes a logged event to the event topic
func (w *Worker) handleLogEvent(job *ConnectionJob, msg *protocol.LogEventMessage) error {
	// Assign a server-side ID when the client did not supply one
	if msg.Data.ID == "" {
		msg.Data.ID = uuid.New().String()
	}

	eventMsg := &protocol.EventMessage{
		ConnectionID: job.ConnectionID,
		DogID:        job.DogID,
		DogName:      job.DogName,
		ReceivedAt:   job.Timestamp,
		Data:         msg.Data,
	}

	// Encode to JSON
	data, err := protocol.EncodeEventMessage(eventMsg)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	// Publish to Kafka (key is dog ID for partitioning)
	if err := w.server.producer.Publish(w.server.ctx, job.DogID, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	fmt.Printf("Worker %d: Logged %s event from %s\n", w.id, msg.Data.EventType, job.ConnectionID)

	ack := protocol.NewAckMessage(protocol.AckStatusLogged)
	return w.server.sendMessage(job.Conn, ack)
}

// handleDeleteEvent publishes a deletion marker for a logged event
func (w *Worker) handleDeleteEvent(job *ConnectionJob, msg *protocol.DeleteEventMessage) error {
	eventMsg := &protocol.EventMessage{
		ConnectionID: job.ConnectionID,
		DogID:        job.DogID,
		DogName:      job.DogName,
		ReceivedAt:   job.Timestamp,
		Deleted:      true,
		Data:         protocol.EventData{ID: msg.EventID},
	}

	data, err := protocol.EncodeEventMessage(eventMsg)
	if err != nil {
		return fmt.Errorf("failed to encode deletion: %w", err)
	}

	if err := w.server.producer.Publish(w.server.ctx, job.DogID, data); err != nil {
		return fmt.Errorf("failed to publish deletion: %w", err)
	}

	fmt.Printf("Worker %d: Deleted event %s from %s\n", w.id, msg.EventID, job.ConnectionID)

	ack := protocol.NewAckMessage(protocol.AckStatusDeleted)
	return w.server.sendMessage(job.Conn, ack)
}

// handleKeepalive handles keepalive message
func (w *Worker) handleKeepalive(job *ConnectionJob) error {
	ack := protocol.NewAckMessage(protocol.AckStatusAlive)
	return w.server.sendMessage(job.Conn, ack)
}

// Helper methods

func (s *TCPServer) sendMessage(conn net.Conn, msg interface{}) error {
	data, err := protocol.EncodeMessage(msg)
	if err != nil {
		return err
	}

	_, err = conn.Write(append(data, '\n'))
	return err
}

func (s *TCPServer) sendError(conn net.Conn) {
	ack := protocol.NewAckMessage(protocol.AckStatusError)
	s.sendMessage(conn, ack)
}

func (s *TCPServer) scheduleInactivityTimer(connectionID string) {
	timerID := fmt.Sprintf("inactivity-%s", connectionID)
	expiryAt := time.Now().Add(s.config.InactivityTimeout)

	callback := func() {
		fmt.Printf("Inactivity timeout for connection %s\n", connectionID)

		// Get client info
		client, exists := s.connManager.Get(connectionID)
		if !exists {
			return
		}

		// Close connection; unregister happens in the reader's deferred cleanup
		client.Conn.Close()
	}

	s.timerManager.Schedule(timerID, expiryAt, callback)
}
