package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/muurk/remoterelay/internal/device"
	"github.com/muurk/remoterelay/internal/logging"
	"github.com/muurk/remoterelay/internal/relay"
	"github.com/muurk/remoterelay/internal/settings"
)

const teapot = "" +
	"            _           \r\n" +
	"         _,(_)._            \r\n" +
	"    ___,(_______).          \r\n" +
	"  ,'__.           \\    /\\_  \r\n" +
	" /,' /             \\  /  /  \r\n" +
	"| | |              |,'  /   \r\n" +
	" \\`.|                  /    \r\n" +
	"  `. :           :    /     \r\n" +
	"    `.            :.,'      \r\n" +
	"      `-.________,-'        \r\n" +
	"  \r\n"

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusTeapot, teapot)
}

func (s *Server) handleDebug(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, logging.GetLog())
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	var body []byte
	err := s.loop.Do(r.Context(), func(c *device.Context) error {
		body = c.Record.JSON(make([]byte, 0, settings.JSONBufferSize))
		return nil
	})
	if err != nil {
		s.unavailable(w, err)
		return
	}
	writeRaw(w, http.StatusOK, body)
}

// handlePostSettings applies every form field, persists and replies with
// the new settings. Unknown names reject the whole request.
func (s *Server) handlePostSettings(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || len(r.Form) == 0 {
		writeText(w, http.StatusBadRequest, "Invalid parameters\r\n")
		return
	}

	names := make([]string, 0, len(r.Form))
	for name := range r.Form {
		if !settings.KnownParam(name) {
			writeText(w, http.StatusBadRequest, "Unknown parameter: "+name+"\r\n")
			return
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var body []byte
	err := s.loop.Do(r.Context(), func(c *device.Context) error {
		for _, name := range names {
			value := r.Form.Get(name)
			if err := c.Record.Apply(name, value); err != nil {
				return err
			}
			switch name {
			case settings.ParamPassword, settings.ParamWPAKey:
				s.logger.Info("Updated setting", zap.String("name", name))
			default:
				s.logger.Info("Updated setting", zap.String("name", name), zap.String("value", value))
			}
		}
		c.Orchestrator.Post(device.PersistRequested{})
		body = c.Record.JSON(make([]byte, 0, settings.JSONBufferSize))
		return nil
	})
	if err != nil {
		s.unavailable(w, err)
		return
	}
	writeRaw(w, http.StatusCreated, body)
}

// handleLifecycle posts e and answers with reply.
func (s *Server) handleLifecycle(e device.Event, reply string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := s.loop.Do(r.Context(), func(c *device.Context) error {
			c.Orchestrator.Post(e)
			return nil
		})
		if err != nil {
			s.unavailable(w, err)
			return
		}
		s.logger.Info("Lifecycle requested over HTTP", zap.String("reply", reply))
		writeText(w, http.StatusOK, reply)
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	var st device.State
	err := s.loop.Do(r.Context(), func(c *device.Context) error {
		st = c.Orchestrator.Snapshot()
		return nil
	})
	if err != nil {
		s.unavailable(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleGetChannel(w http.ResponseWriter, r *http.Request) {
	channel, ok := channelID(w, r)
	if !ok {
		return
	}

	var status relay.ChannelState
	err := s.loop.Do(r.Context(), func(c *device.Context) error {
		on, err := c.Relay.State(channel)
		status = relay.ChannelState{Channel: channel, Mode: relay.ModeName(on)}
		return err
	})
	s.replyChannel(w, r, status, err)
}

func (s *Server) handlePutChannel(w http.ResponseWriter, r *http.Request) {
	channel, ok := channelID(w, r)
	if !ok {
		return
	}

	if err := r.ParseForm(); err != nil || len(r.Form) != 1 || !r.Form.Has("mode") {
		writeText(w, http.StatusBadRequest, "Invalid parameter\r\n")
		return
	}
	value := r.Form.Get("mode")
	on, err := relay.ParseMode(value)
	if err != nil {
		writeText(w, http.StatusBadRequest, "Invalid value: "+value+"\r\n")
		return
	}

	status := relay.ChannelState{Channel: channel, Mode: relay.ModeName(on)}
	err = s.loop.Do(r.Context(), func(c *device.Context) error {
		return c.Relay.Set(channel, on)
	})
	s.replyChannel(w, r, status, err)
}

func (s *Server) replyChannel(w http.ResponseWriter, r *http.Request, status relay.ChannelState, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, status)
	case errors.Is(err, relay.ErrInvalidChannel):
		notFound(w, r)
	case isLoopError(err):
		s.unavailable(w, err)
	default:
		s.logger.Error("Relay operation failed", zap.Int("channel", status.Channel), zap.Error(err))
		writeText(w, http.StatusBadGateway, "Relay error\r\n")
	}
}

func channelID(w http.ResponseWriter, r *http.Request) (int, bool) {
	channel, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		notFound(w, r)
		return 0, false
	}
	return channel, true
}

func isLoopError(err error) bool {
	return errors.Is(err, device.ErrLoopStopped) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// unavailable answers for requests the control loop could not run.
func (s *Server) unavailable(w http.ResponseWriter, err error) {
	if !isLoopError(err) {
		s.logger.Error("Request failed", zap.Error(err))
		writeText(w, http.StatusInternalServerError, "Internal error\r\n")
		return
	}
	writeText(w, http.StatusServiceUnavailable, "Service unavailable\r\n")
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		writeText(w, http.StatusInternalServerError, "Internal error\r\n")
		return
	}
	writeRaw(w, status, body)
}
