// Package irctest adapts the teacher's mock IRC server
// (Travis-Britz-irc/irctest) into an io.ReadWriteCloser test double for
// this module's ircmsg.Message wire format, used by engine tests in place
// of a real socket.
package irctest

import (
	"bufio"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/weechat/ircengine/ircmsg"
)

// Handler receives each line the mock client sends, parsed into an
// ircmsg.Message, with w positioned to write lines back to that client.
type Handler func(w *Server, m *ircmsg.Message)

// NewServer creates a mock IRC server that implements io.ReadWriteCloser
// from the client's perspective. Don't forget to close.
func NewServer(h Handler) *Server {
	s := &Server{Handler: h}
	s.sendReader, s.sendWriter = io.Pipe()
	s.recvReader, s.recvWriter = io.Pipe()
	s.recv = make(chan []byte, 1)

	go s.read()
	go s.write()
	return s
}

type Server struct {
	Handler Handler

	rs   sync.Once
	recv chan []byte

	recvReader *io.PipeReader
	recvWriter *io.PipeWriter

	sendReader *io.PipeReader
	sendWriter *io.PipeWriter
}

// Read is how the client under test reads lines sent by the mock server.
func (s *Server) Read(p []byte) (int, error) {
	return s.sendReader.Read(p)
}

// Write is how the client under test sends lines to the mock server.
func (s *Server) Write(p []byte) (int, error) {
	s.recv <- append([]byte(nil), p...)
	return len(p), nil
}

func (s *Server) Close() error {
	_ = s.recvWriter.Close()
	_ = s.sendWriter.Close()
	s.rs.Do(func() { close(s.recv) })
	return nil
}

// WriteString sends a raw line to the client under test, appending CRLF
// if missing.
func (s *Server) WriteString(str string) {
	if !strings.HasSuffix(str, "\r\n") {
		str += "\r\n"
	}
	if _, err := s.sendWriter.Write([]byte(str)); err != nil {
		log.Println("irctest: mock server write error:", err)
	}
}

// WriteMessage marshals and sends m to the client under test.
func (s *Server) WriteMessage(m *ircmsg.Message) {
	b, err := m.MarshalText()
	if err != nil {
		log.Println("irctest: marshal error:", err)
		return
	}
	if _, err := s.sendWriter.Write(b); err != nil {
		log.Println("irctest: mock server write error:", err)
	}
}

func (s *Server) read() {
	scanner := bufio.NewScanner(s.recvReader)
	for scanner.Scan() {
		line := scanner.Bytes()
		m := new(ircmsg.Message)
		m.IncludePrefix()
		if err := m.UnmarshalText(line); err != nil {
			log.Println("irctest: unmarshal error:", err)
			continue
		}
		if s.Handler != nil {
			s.Handler(s, m)
		}
	}
}

func (s *Server) write() {
	for b := range s.recv {
		if _, err := s.recvWriter.Write(b); err != nil {
			log.Println("irctest: mock server relay error:", err)
		}
	}
}
