//go:build linux

// Poolkeeper
// Copyright (c) 2026 The Poolkeeper Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Poolkeeper.
//
// Poolkeeper is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Poolkeeper is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Poolkeeper.  If not, see <http://www.gnu.org/licenses/>.

// Package daemon runs the service in the foreground with a pid file, and
// starts, stops and inspects a background instance.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/poolkeeper/poolkeeper/pkg/api/client"
	"github.com/poolkeeper/poolkeeper/pkg/config"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/process"
)

var (
	ErrAlreadyRunning = errors.New("service already running")
	ErrNotRunning     = errors.New("service not running")
)

// ServiceEntry starts the service. stop shuts it down and done closes once
// it has exited on its own.
type ServiceEntry func() (stop func() error, done <-chan struct{}, err error)

type Service struct {
	start  ServiceEntry
	runDir string
	// startWait bounds how long Start waits for the child's pid file.
	startWait time.Duration
}

type ServiceArgs struct {
	Entry  ServiceEntry
	RunDir string
}

func NewService(args ServiceArgs) (*Service, error) {
	if err := os.MkdirAll(args.RunDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}
	return &Service{
		start:     args.Entry,
		runDir:    args.RunDir,
		startWait: 3 * time.Second,
	}, nil
}

func (s *Service) pidPath() string {
	return filepath.Join(s.runDir, config.PidFile)
}

// Create new PID file using current process PID.
func (s *Service) createPidFile() error {
	err := os.WriteFile(s.pidPath(), []byte(strconv.Itoa(os.Getpid())), 0o600)
	if err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	return nil
}

func (s *Service) removePidFile() error {
	err := os.Remove(s.pidPath())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}
	return nil
}

// Pid returns the process ID recorded in the pid file, or 0 when there is
// no pid file.
func (s *Service) Pid() (int, error) {
	//nolint:gosec // Safe: reads the pid file for service management
	data, err := os.ReadFile(s.pidPath())
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	} else if err != nil {
		return 0, fmt.Errorf("error reading pid file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("error parsing pid: %w", err)
	}
	return pid, nil
}

// Running returns true if the process in the pid file is alive.
func (s *Service) Running() bool {
	pid, err := s.Pid()
	if err != nil || pid == 0 {
		return false
	}
	exists, err := process.PidExists(int32(pid)) //nolint:gosec // pids fit in int32 on linux
	return err == nil && exists
}

// Status describes a running daemon process.
type Status struct {
	Started time.Time
	Pid     int
	RSS     uint64
}

func (st Status) String() string {
	out := fmt.Sprintf("pid %d", st.Pid)
	if !st.Started.IsZero() {
		out += ", up " + time.Since(st.Started).Truncate(time.Second).String()
	}
	if st.RSS > 0 {
		out += fmt.Sprintf(", rss %d KiB", st.RSS/1024)
	}
	return out
}

// Status inspects the process named in the pid file. Fields the kernel
// would not report are left zero.
func (s *Service) Status(ctx context.Context) (Status, error) {
	if !s.Running() {
		return Status{}, ErrNotRunning
	}
	pid, err := s.Pid()
	if err != nil {
		return Status{}, err
	}

	proc, err := process.NewProcessWithContext(ctx, int32(pid)) //nolint:gosec // pids fit in int32 on linux
	if err != nil {
		return Status{}, fmt.Errorf("failed to inspect service process: %w", err)
	}

	st := Status{Pid: pid}
	if ms, err := proc.CreateTimeWithContext(ctx); err == nil {
		st.Started = time.UnixMilli(ms)
	}
	if mem, err := proc.MemoryInfoWithContext(ctx); err == nil {
		st.RSS = mem.RSS
	}
	return st, nil
}

// Run starts the service in this process and blocks until ctx is done, a
// SIGINT or SIGTERM arrives, or the service exits on its own.
func (s *Service) Run(ctx context.Context) error {
	if s.Running() {
		return ErrAlreadyRunning
	}

	log.Info().Msg("starting service")
	if err := s.createPidFile(); err != nil {
		return err
	}
	defer func() {
		if err := s.removePidFile(); err != nil {
			log.Error().Err(err).Msg("error removing pid file")
		}
	}()

	stop, done, err := s.start()
	if err != nil {
		return fmt.Errorf("error starting service: %w", err)
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	select {
	case <-ctx.Done():
		log.Info().Msg("stopping service")
	case <-done:
		log.Info().Msg("service shut down internally")
	}

	if err := stop(); err != nil {
		log.Error().Err(err).Msg("error stopping service")
		return fmt.Errorf("error stopping service: %w", err)
	}
	return nil
}

// Start a new service daemon in the background.
func (s *Service) Start() error {
	if s.Running() {
		return ErrAlreadyRunning
	}

	binPath := os.Getenv(config.AppEnv)
	if binPath == "" {
		exePath, err := os.Executable()
		if err != nil {
			return fmt.Errorf("error getting absolute binary path: %w", err)
		}
		binPath = exePath
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	//nolint:gosec // Safe: re-executes the current binary
	cmd := exec.CommandContext(ctx, binPath, "-service", "exec")
	cmd.Env = append(os.Environ(), fmt.Sprintf("%s=%s", config.AppEnv, binPath))

	// point the child at the same config file
	configPath := filepath.Join(config.ConfigDir(), config.CfgFile)
	if env := os.Getenv(config.CfgEnv); env != "" {
		configPath = env
	}
	if _, err := os.Stat(configPath); err == nil {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", config.CfgEnv, configPath))
	}

	// Detach from parent: create new session
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("error starting service: %w", err)
	}
	if err := cmd.Process.Release(); err != nil {
		return fmt.Errorf("error releasing service process: %w", err)
	}

	deadline := time.Now().Add(s.startWait)
	for !s.Running() {
		if time.Now().After(deadline) {
			return errors.New("service did not write its pid file in time")
		}
		time.Sleep(100 * time.Millisecond)
	}

	pid, _ := s.Pid()
	log.Info().Int("pid", pid).Msg("service process started")
	return nil
}

// Stop sends SIGTERM to the background daemon.
func (s *Service) Stop() error {
	if !s.Running() {
		return ErrNotRunning
	}

	pid, err := s.Pid()
	if err != nil {
		return err
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process: %w", err)
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to send SIGTERM to process: %w", err)
	}
	return nil
}

func (s *Service) Restart() error {
	if s.Running() {
		if err := s.Stop(); err != nil {
			return err
		}
	}

	deadline := time.Now().Add(10 * time.Second)
	for s.Running() {
		if time.Now().After(deadline) {
			return errors.New("timeout waiting for service to stop")
		}
		time.Sleep(500 * time.Millisecond)
	}

	return s.Start()
}

// WaitForAPI waits for the daemon's API to answer. It tells a crashed
// daemon apart from a slow one.
func (s *Service) WaitForAPI(ctx context.Context, cfg *config.Instance, maxWait, checkInterval time.Duration) error {
	if client.WaitForAPI(ctx, cfg, maxWait, checkInterval) {
		log.Info().Msg("API is now available")
		return nil
	}

	if !s.Running() {
		log.Error().Msg("service process is no longer running")
		return errors.New("service process crashed during startup")
	}

	log.Warn().Msg("service process is running but API is not responding")
	return errors.New("API did not become available within timeout")
}

// ServiceHandler runs a -service subcommand. status reports through the
// returned error: nil means running.
func (s *Service) ServiceHandler(ctx context.Context, cmd string) error {
	switch cmd {
	case "exec":
		return s.Run(ctx)
	case "start":
		return s.Start()
	case "stop":
		return s.Stop()
	case "restart":
		return s.Restart()
	case "status":
		if s.Running() {
			return nil
		}
		return ErrNotRunning
	case "":
		return nil
	default:
		return fmt.Errorf("unknown service argument: %s", cmd)
	}
}
