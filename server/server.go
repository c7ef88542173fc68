/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package server wires the Codec, Credential Store, Connection
// Registry, Session Manager, Router and Command Handler together and
// runs the accept loop.
package server

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/crewjam/rfc5424"
	"github.com/google/uuid"

	"github.com/gravwell/chatrelay/codec"
	"github.com/gravwell/chatrelay/config"
	"github.com/gravwell/chatrelay/credstore"
	"github.com/gravwell/chatrelay/handler"
	"github.com/gravwell/chatrelay/log"
	"github.com/gravwell/chatrelay/registry"
	"github.com/gravwell/chatrelay/router"
	"github.com/gravwell/chatrelay/session"
)

// idleSweepInterval matches the ~5s readiness-loop tick the original
// single-threaded design used for periodic work.
const idleSweepInterval = 5 * time.Second

// Server owns the long-lived collaborators and the listener; it is the
// idiomatic-Go rendering of spec.md's "single global mutable state ...
// reified as a Server aggregate."
type Server struct {
	cfg     config.Config
	lg      *log.Logger
	id      uuid.UUID
	reg     *registry.Registry
	creds   *credstore.Store
	session *session.Manager
	router  *router.Router
	handler *handler.Handler
	codec   *codec.Codec

	nextHandle uint64 // atomic

	wg       sync.WaitGroup
	listener net.Listener
}

// New builds a Server from cfg, seeding the credential store from
// cfg.SeedUsers, and logging through lg.
func New(cfg config.Config, lg *log.Logger) (*Server, error) {
	creds := credstore.New()
	for name, cred := range cfg.SeedUsers {
		if _, err := creds.Add(name, cred); err != nil {
			return nil, fmt.Errorf("server: seeding user %q: %w", name, err)
		}
	}
	reg := registry.New()
	sess := session.New(reg, creds)
	rt := router.New(reg, creds, lg)
	cdc := codec.New()
	hnd := handler.New(reg, creds, sess, rt, cdc, lg)

	return &Server{
		cfg:     cfg,
		lg:      lg,
		id:      uuid.New(),
		reg:     reg,
		creds:   creds,
		session: sess,
		router:  rt,
		handler: hnd,
		codec:   cdc,
	}, nil
}

// Run binds the listener and serves connections until quit fires. It
// returns once every connection goroutine has exited.
func (s *Server) Run(quit <-chan struct{}) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("server: listen: %w", err)
	}
	s.listener = ln
	s.lg.Info("server listening",
		rfc5424.SDParam{Name: "port", Value: fmt.Sprint(s.cfg.Port)},
		rfc5424.SDParam{Name: "instance", Value: s.id.String()},
	)

	sweepDone := make(chan struct{})
	go s.idleSweepLoop(sweepDone)

	acceptDone := make(chan struct{})
	go func() {
		defer close(acceptDone)
		s.acceptLoop()
	}()

	<-quit
	s.lg.Info("server shutting down")
	ln.Close()
	<-acceptDone
	close(sweepDone)

	for _, c := range s.reg.Snapshot() {
		s.reg.CloseAndRemove(c.Handle)
	}
	s.wg.Wait()
	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return // listener closed during shutdown
		}
		if s.reg.Count() >= s.cfg.MaxClients {
			conn.Close()
			continue
		}
		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	handle := atomic.AddUint64(&s.nextHandle, 1)
	ip, port := splitRemote(conn.RemoteAddr())
	s.reg.Add(handle, conn, ip, port)
	clg := log.NewLoggerWithKV(s.lg, rfc5424.SDParam{Name: "handle", Value: fmt.Sprint(handle)})
	clg.Info("connection accepted")
	defer func() {
		s.reg.Remove(handle)
		clg.Info("connection closed")
	}()

	scanner := codec.NewFrameScanner(conn)
	for scanner.Scan() {
		s.reg.Touch(handle)
		if s.handler.HandleRaw(handle, scanner.Bytes()) {
			return
		}
	}
}

func (s *Server) idleSweepLoop(done <-chan struct{}) {
	if s.cfg.IdleTimeout <= 0 {
		<-done
		return
	}
	t := time.NewTicker(idleSweepInterval)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			now := time.Now()
			for _, c := range s.reg.Snapshot() {
				if now.Sub(c.LastActive) > s.cfg.IdleTimeout {
					s.lg.Info("idle connection reaped", rfc5424.SDParam{Name: "handle", Value: fmt.Sprint(c.Handle)})
					s.reg.CloseAndRemove(c.Handle)
				}
			}
		}
	}
}

func splitRemote(addr net.Addr) (net.IP, int) {
	tcpAddr, ok := addr.(*net.TCPAddr)
	if !ok {
		return nil, 0
	}
	return tcpAddr.IP, tcpAddr.Port
}
