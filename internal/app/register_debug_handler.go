// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/forktilt/internal/config"
	"github.com/relabs-tech/forktilt/internal/imu"
	"github.com/relabs-tech/forktilt/internal/sensors"
	"github.com/relabs-tech/forktilt/internal/sensors/mpu6050"
)

// registerBackend is what the register debug tool needs from
// sensors.Manager.
type registerBackend interface {
	ReadRegister(reg byte) (byte, error)
	WriteRegister(reg, value byte) error
	ReadAllRegisters() ([]sensors.RegisterValue, error)
	ExportConfig() (map[string]string, error)
	Reinitialize() error
	Update() (imu.Reading, error)
}

// RegisterCmd is one websocket request.
type RegisterCmd struct {
	Action  string `json:"action"` // "get_map", "read", "read_all", "write", "init", "export_config"
	Address string `json:"addr,omitempty"`
	Value   string `json:"value,omitempty"`
}

// RegisterResponse is every websocket reply.
type RegisterResponse struct {
	Type        string                 `json:"type"` // "register_data", "register_map", "config", "status", "error"
	Address     string                 `json:"addr,omitempty"`
	Value       string                 `json:"value,omitempty"`
	Registers   map[string]string      `json:"registers,omitempty"` // for bulk read
	Timestamp   string                 `json:"timestamp,omitempty"`
	Message     string                 `json:"message,omitempty"`
	Status      string                 `json:"status,omitempty"`
	RegisterMap []mpu6050.RegisterInfo `json:"register_map,omitempty"`
	Config      *RegisterConfigFile    `json:"config,omitempty"`
}

// RegisterConfigFile is the exported register configuration.
type RegisterConfigFile struct {
	Version   int               `json:"version"`
	Device    string            `json:"device"`
	Timestamp string            `json:"timestamp"`
	Registers map[string]string `json:"registers"` // register name -> hex value
}

type registerDebug struct {
	mgr         registerBackend
	allowWrites bool
}

// RunRegisterDebug serves the register debug websocket at /ws, a JSON dump
// at /api/registers, a live reading at /api/imu and the debug page.
func RunRegisterDebug(ctx context.Context) error {
	log.Info("starting MPU-6050 register debug tool")
	cfg := config.Get()

	mgr := sensors.GetManager()
	if err := mgr.Open(cfg); err != nil {
		return err
	}
	defer mgr.Close()

	if cfg.RegisterDebugAllowWrites {
		log.Warn("register_debug: register writes are enabled")
	}
	rd := &registerDebug{mgr: mgr, allowWrites: cfg.RegisterDebugAllowWrites}

	mux := rd.routes()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "web/register_debug.html")
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.RegisterDebugPort),
		Handler: mux,
	}
	return serveUntilDone(ctx, "register_debug", srv)
}

func (rd *registerDebug) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", rd.handleWS)
	mux.HandleFunc("/api/registers", rd.handleRegistersAPI)
	mux.HandleFunc("/api/imu", rd.handleIMUData)
	return mux
}

func (rd *registerDebug) handleRegistersAPI(w http.ResponseWriter, r *http.Request) {
	regs, err := rd.mgr.ReadAllRegisters()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(regs); err != nil {
		log.Warnf("register_debug: json encode error: %v", err)
	}
}

func (rd *registerDebug) handleIMUData(w http.ResponseWriter, r *http.Request) {
	reading, err := rd.mgr.Update()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(reading); err != nil {
		log.Warnf("register_debug: json encode error: %v", err)
	}
}

func (rd *registerDebug) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("register_debug: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	if err := conn.WriteJSON(registerMapResponse()); err != nil {
		log.Warnf("register_debug: error sending register map: %v", err)
		return
	}

	for {
		var cmd RegisterCmd
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warnf("register_debug: websocket error: %v", err)
			}
			return
		}
		if err := conn.WriteJSON(rd.handle(cmd)); err != nil {
			log.Warnf("register_debug: websocket write: %v", err)
			return
		}
	}
}

// handle executes one command and builds its reply.
func (rd *registerDebug) handle(cmd RegisterCmd) RegisterResponse {
	now := time.Now().Format(time.RFC3339)

	switch cmd.Action {
	case "get_map":
		return registerMapResponse()

	case "read":
		reg, err := parseByte(cmd.Address)
		if err != nil {
			return errorResponse("invalid address format: %s", cmd.Address)
		}
		v, err := rd.mgr.ReadRegister(reg)
		if err != nil {
			return errorResponse("read error: %v", err)
		}
		return RegisterResponse{Type: "register_data", Address: hexByte(reg), Value: hexByte(v), Timestamp: now}

	case "read_all":
		regs, err := rd.mgr.ReadAllRegisters()
		if err != nil {
			return errorResponse("read all error: %v", err)
		}
		m := make(map[string]string, len(regs))
		for _, r := range regs {
			m[hexByte(r.Address)] = hexByte(r.Value)
		}
		return RegisterResponse{Type: "register_data", Registers: m, Timestamp: now}

	case "write":
		if !rd.allowWrites {
			return errorResponse("register writes are disabled (REGISTER_DEBUG_ALLOW_WRITES=false)")
		}
		reg, err := parseByte(cmd.Address)
		if err != nil {
			return errorResponse("invalid address format: %s", cmd.Address)
		}
		v, err := parseByte(cmd.Value)
		if err != nil {
			return errorResponse("invalid value format: %s", cmd.Value)
		}
		if err := rd.mgr.WriteRegister(reg, v); err != nil {
			return errorResponse("write error: %v", err)
		}
		return RegisterResponse{
			Type:      "register_data",
			Address:   hexByte(reg),
			Value:     hexByte(v),
			Timestamp: now,
			Message:   "write successful",
		}

	case "init":
		if err := rd.mgr.Reinitialize(); err != nil {
			return errorResponse("reinit error: %v", err)
		}
		return RegisterResponse{Type: "status", Status: "initialized", Message: "MPU-6050 reinitialized successfully"}

	case "export_config":
		regs, err := rd.mgr.ExportConfig()
		if err != nil {
			return errorResponse("export error: %v", err)
		}
		return RegisterResponse{
			Type: "config",
			Config: &RegisterConfigFile{
				Version:   1,
				Device:    "mpu6050",
				Timestamp: now,
				Registers: regs,
			},
		}

	case "":
		return errorResponse("missing or invalid action field")
	default:
		return errorResponse("unknown action: %s", cmd.Action)
	}
}

func registerMapResponse() RegisterResponse {
	return RegisterResponse{Type: "register_map", RegisterMap: mpu6050.RegisterMap()}
}

func errorResponse(format string, args ...any) RegisterResponse {
	return RegisterResponse{Type: "error", Message: fmt.Sprintf(format, args...)}
}

// parseByte accepts "0x6B", "107" or "0b1101011".
func parseByte(s string) (byte, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, err
	}
	return byte(v), nil
}

func hexByte(b byte) string {
	return fmt.Sprintf("0x%02X", b)
}
