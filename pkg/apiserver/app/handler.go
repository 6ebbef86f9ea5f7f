package app

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"minihpa/object"
	"minihpa/pkg/apiserver/config"
	"minihpa/pkg/controller/autoscaler"
	"minihpa/pkg/controller/podautoscaler"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func abortWithError(ctx *gin.Context, code int, err error) {
	ctx.AbortWithStatusJSON(code, gin.H{"error": err.Error()})
}

func statusCodeOf(err error) int {
	switch {
	case errors.Is(err, podautoscaler.ErrTargetNotFound):
		return http.StatusNotFound
	case errors.Is(err, podautoscaler.ErrTargetBusy):
		return http.StatusConflict
	case errors.Is(err, object.ErrInvalidBounds), errors.Is(err, object.ErrInvalidConfig):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) validate(ctx *gin.Context) {
	name := ctx.Param(config.ParamName)
	if name == "" || strings.ContainsAny(name, "/ ") {
		abortWithError(ctx, http.StatusBadRequest, errors.Errorf("bad autoscaler name %q", name))
	}
}

func (s *Server) health(ctx *gin.Context) {
	ctx.String(http.StatusOK, "ok")
}

func (s *Server) list(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, s.controller.List())
}

func (s *Server) get(ctx *gin.Context) {
	view, err := s.controller.Get(ctx.Param(config.ParamName))
	if err != nil {
		abortWithError(ctx, statusCodeOf(err), err)
		return
	}
	ctx.JSON(http.StatusOK, view)
}

func (s *Server) put(ctx *gin.Context) {
	name := ctx.Param(config.ParamName)
	body, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		abortWithError(ctx, http.StatusBadRequest, err)
		return
	}
	as := &object.Autoscaler{}
	if err := json.Unmarshal(body, as); err != nil {
		abortWithError(ctx, http.StatusBadRequest, err)
		return
	}
	if as.Metadata.Name == "" {
		as.Metadata.Name = name
	}
	if as.Metadata.Name != name {
		abortWithError(ctx, http.StatusBadRequest, errors.Errorf("metadata.name %q does not match %q", as.Metadata.Name, name))
		return
	}
	as.Complete()
	if err := as.Validate(); err != nil {
		abortWithError(ctx, http.StatusBadRequest, err)
		return
	}

	if s.store == nil {
		if err := s.controller.Register(as); err != nil {
			abortWithError(ctx, statusCodeOf(err), err)
			return
		}
		ctx.Status(http.StatusOK)
		return
	}
	raw, err := json.Marshal(as)
	if err != nil {
		abortWithError(ctx, http.StatusInternalServerError, err)
		return
	}
	storeCtx, cancel := context.WithTimeout(ctx.Request.Context(), s.storeTimeout)
	defer cancel()
	if err := s.store.Put(storeCtx, autoscaler.Key(name), raw); err != nil {
		abortWithError(ctx, http.StatusBadGateway, err)
		return
	}
	ctx.Status(http.StatusAccepted)
}

func (s *Server) del(ctx *gin.Context) {
	name := ctx.Param(config.ParamName)
	if s.store == nil {
		if !s.controller.Unregister(name) {
			abortWithError(ctx, http.StatusNotFound, errors.Wrap(podautoscaler.ErrTargetNotFound, name))
			return
		}
		ctx.Status(http.StatusOK)
		return
	}
	storeCtx, cancel := context.WithTimeout(ctx.Request.Context(), s.storeTimeout)
	defer cancel()
	if err := s.store.Del(storeCtx, autoscaler.Key(name)); err != nil {
		abortWithError(ctx, http.StatusBadGateway, err)
		return
	}
	ctx.Status(http.StatusAccepted)
}

func (s *Server) sync(ctx *gin.Context) {
	phase, err := s.controller.SyncTarget(ctx.Request.Context(), ctx.Param(config.ParamName))
	if err != nil && (errors.Is(err, podautoscaler.ErrTargetNotFound) || errors.Is(err, podautoscaler.ErrTargetBusy)) {
		abortWithError(ctx, statusCodeOf(err), err)
		return
	}
	res := gin.H{"outcome": phase}
	if err != nil {
		res["error"] = err.Error()
	}
	ctx.JSON(http.StatusOK, res)
}

// events returns the retained events, newest last, optionally filtered by target and cut to the last limit.
func (s *Server) events(ctx *gin.Context) {
	events := s.controller.Events()
	if raw := ctx.Query(config.QueryTarget); raw != "" {
		targets := mapset.NewThreadUnsafeSet[string](strings.Split(raw, ",")...)
		filtered := events[:0]
		for _, ev := range events {
			if targets.Contains(ev.Target) {
				filtered = append(filtered, ev)
			}
		}
		events = filtered
	}
	if raw := ctx.Query(config.QueryLimit); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			abortWithError(ctx, http.StatusBadRequest, errors.Errorf("bad limit %q", raw))
			return
		}
		if limit < len(events) {
			events = events[len(events)-limit:]
		}
	}
	ctx.JSON(http.StatusOK, events)
}
