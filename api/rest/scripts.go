package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/scenarioplayer/cache"
	"github.com/kasuganosora/scenarioplayer/game/ir"
	"github.com/kasuganosora/scenarioplayer/game/player"
	"github.com/kasuganosora/scenarioplayer/game/script"
	"github.com/kasuganosora/scenarioplayer/resource"
	"go.uber.org/zap"
)

// ScriptLibrary lists and reads scripts. *resource.Loader implements it.
type ScriptLibrary interface {
	ScriptNames() ([]string, error)
	ReadScript(name string) (string, error)
}

// ScriptHandler serves script listings, IR dumps and diagnostics.
type ScriptHandler struct {
	lib      ScriptLibrary
	compiler *player.Compiler
	c        cache.Cache // nil disables IR caching
	ttl      time.Duration
	logger   *zap.Logger
}

// NewScriptHandler creates a ScriptHandler. Dumps are cached in c for ttl,
// keyed by the hash of the script text so an edited script is recompiled.
func NewScriptHandler(lib ScriptLibrary, compiler *player.Compiler, c cache.Cache, ttl time.Duration, logger *zap.Logger) *ScriptHandler {
	return &ScriptHandler{lib: lib, compiler: compiler, c: c, ttl: ttl, logger: logger}
}

// List handles GET /api/scripts.
func (h *ScriptHandler) List(c *gin.Context) {
	names, err := h.lib.ScriptNames()
	if err != nil {
		h.logger.Error("list scripts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if names == nil {
		names = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"scripts": names})
}

// read loads a script, answering 404 for unknown names.
func (h *ScriptHandler) read(c *gin.Context) (string, bool) {
	name := c.Param("name")
	src, err := h.lib.ReadScript(name)
	if errors.Is(err, resource.ErrScriptNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "script not found"})
		return "", false
	}
	if err != nil {
		h.logger.Error("read script", zap.String("script", name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return "", false
	}
	return src, true
}

func contentType(f ir.Format) string {
	if f == ir.FormatYAML {
		return "application/yaml; charset=utf-8"
	}
	return "application/json; charset=utf-8"
}

func irKey(hash string, f ir.Format) string { return "ir:" + hash + ":" + string(f) }

// IR handles GET /api/scripts/:name/ir?format=json|yaml.
func (h *ScriptHandler) IR(c *gin.Context) {
	format, err := ir.ParseFormat(c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	src, ok := h.read(c)
	if !ok {
		return
	}
	key := irKey(player.SourceHash(src), format)

	if h.c != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		doc, err := h.c.Get(ctx, key)
		cancel()
		if err == nil {
			c.Header("X-Cache", "hit")
			c.Data(http.StatusOK, contentType(format), []byte(doc))
			return
		}
		if !cache.IsNotFound(err) {
			h.logger.Warn("ir cache read", zap.String("key", key), zap.Error(err))
		}
	}

	compiled := h.compiler.Compile(c.Param("name"), src)
	doc, err := ir.Dump(compiled.Program, format)
	if err != nil {
		h.logger.Error("dump ir", zap.String("script", compiled.Name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if h.c != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		if err := h.c.Set(ctx, key, string(doc), h.ttl); err != nil {
			h.logger.Warn("ir cache write", zap.String("key", key), zap.Error(err))
		}
		cancel()
	}
	c.Header("X-Cache", "miss")
	c.Data(http.StatusOK, contentType(format), doc)
}

// Diagnostics handles GET /api/scripts/:name/diagnostics.
func (h *ScriptHandler) Diagnostics(c *gin.Context) {
	src, ok := h.read(c)
	if !ok {
		return
	}
	compiled := h.compiler.Compile(c.Param("name"), src)
	diags := compiled.Diagnostics
	if diags == nil {
		diags = []script.Diagnostic{}
	}
	c.JSON(http.StatusOK, gin.H{
		"script":      compiled.Name,
		"hash":        compiled.Hash,
		"steps":       compiled.Program.Len(),
		"diagnostics": diags,
	})
}

// Schema handles GET /api/ir/schema.
func (h *ScriptHandler) Schema(c *gin.Context) {
	c.Data(http.StatusOK, "application/schema+json", ir.Schema())
}
