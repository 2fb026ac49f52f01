// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package controller is the host runtime around the proxy engine: it
// accepts TCP connections on a listen address, pairs each one with a
// freshly dialed connection to the configured upstream, and hands the pair
// to proxy.Run on its own supervised goroutine.
package controller

import (
	"context"
	"net"
	"sync"
	"sync/atomic"

	"github.com/zstdproxy/zstdproxy/confengine"
	"github.com/zstdproxy/zstdproxy/internal/rescue"
	"github.com/zstdproxy/zstdproxy/internal/wait"
	"github.com/zstdproxy/zstdproxy/logger"
	"github.com/zstdproxy/zstdproxy/proxy"
	"github.com/zstdproxy/zstdproxy/server"
)

// Controller owns the accept loop and the admin server for one running
// zstdproxyd process. Start/Stop/Reload mirror the lifecycle the teacher's
// controller exposed, rebuilt around this engine's per-connection model
// instead of a packet-capture pipeline.
type Controller struct {
	mu     sync.Mutex
	cfg    Config
	admin  *server.Server
	ln     net.Listener
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New loads Config from conf and prepares (but does not start) the
// listener and admin server.
func New(conf *confengine.Config) (*Controller, error) {
	cfg, err := loadConfig(conf)
	if err != nil {
		return nil, err
	}

	logger.SetOptions(cfg.Logger)

	admin, err := server.New(conf)
	if err != nil {
		return nil, err
	}

	return &Controller{cfg: cfg, admin: admin}, nil
}

// Start binds the listen address and begins accepting connections.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ln, err := net.Listen("tcp", c.cfg.Listen)
	if err != nil {
		return err
	}
	c.ln = ln

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	if c.admin != nil {
		c.registerRoutes()
		go func() {
			defer rescue.HandleCrash()
			if err := c.admin.ListenAndServe(); err != nil {
				logger.Errorf("admin server stopped: %v", err)
			}
		}()
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer rescue.HandleCrash()
		wait.Until(ctx, c.acceptLoop)
	}()

	logger.Infof("zstdproxyd listening on %s, forwarding to %s", c.cfg.Listen, c.cfg.Connect)
	return nil
}

func (c *Controller) acceptLoop(ctx context.Context) {
	conn, err := c.ln.Accept()
	if err != nil {
		select {
		case <-ctx.Done():
		default:
			logger.Errorf("accept failed: %v", err)
		}
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer rescue.HandleCrash()
		c.handle(ctx, conn)
	}()
}

func (c *Controller) handle(ctx context.Context, listenConn net.Conn) {
	defer listenConn.Close()

	connectConn, err := net.Dial("tcp", c.cfg.Connect)
	if err != nil {
		logger.Errorf("dial upstream %s failed: %v", c.cfg.Connect, err)
		return
	}
	defer connectConn.Close()

	listenFD, err := connFD(listenConn)
	if err != nil {
		logger.Errorf("listen side is not a plain TCP connection: %v", err)
		return
	}
	connectFD, err := connFD(connectConn)
	if err != nil {
		logger.Errorf("connect side is not a plain TCP connection: %v", err)
		return
	}

	// Each connection gets its own Stop flag, shared only by its two
	// pipelines, so one connection's teardown does not stop the others.
	opts := c.cfg.Proxy
	opts.Stop = &atomic.Bool{}

	p := &proxy.Proxy{
		Options: opts,
		Listen:  proxy.Descriptor{FD: listenFD},
		Connect: proxy.Descriptor{FD: connectFD},
	}

	if err := proxy.Run(ctx, p); err != nil {
		logger.Debugf("proxy %s finished with error: %v", p.ID, err)
	}
}

// Stop closes the listener and waits for in-flight connections to finish
// tearing down.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	if c.ln != nil {
		c.ln.Close()
	}
	c.mu.Unlock()
	c.wg.Wait()
}

// Reload swaps in a newly loaded Config's logger and proxy options. The
// listen/connect addresses and the admin server are not changed by a
// reload; restart the process to change those.
func (c *Controller) Reload(conf *confengine.Config) error {
	cfg, err := loadConfig(conf)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.Proxy = cfg.Proxy
	c.cfg.Logger = cfg.Logger
	logger.SetOptions(cfg.Logger)
	return nil
}
