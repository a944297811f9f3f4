// Copyright 2024 Basin Labs
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

package wireproto

import (
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/basinhq/hgdps/model/hg"
)

// Handler exposes a Dispatcher over HTTP: one route per wireprotocol
// command, JSON request/response bodies. The real hg client speaks an
// SSH/HTTP framing bit-specific to its own transport; this JSON surface
// is this server's own wire contract, distinct from (and layered above)
// the byte-exact bundle2 payload Getbundle returns.
type Handler struct {
	dispatcher *Dispatcher
	validate   *validator.Validate
}

// NewHandler wraps dispatcher for HTTP serving.
func NewHandler(dispatcher *Dispatcher) *Handler {
	return &Handler{dispatcher: dispatcher, validate: validator.New()}
}

// Register wires every wireprotocol route onto e.
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/hello", h.hello)
	e.GET("/heads", h.heads)
	e.POST("/known", h.known)
	e.POST("/between", h.between)
	e.POST("/getbundle", h.getbundle)
	e.POST("/changegroup", h.changegroup)
	e.POST("/unbundle", h.unbundle)
}

func (h *Handler) hello(c echo.Context) error {
	return c.JSON(http.StatusOK, h.dispatcher.Hello(c.Request().Context()))
}

func (h *Handler) heads(c echo.Context) error {
	nodes, err := h.dispatcher.Heads(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, hexAll(nodes))
}

func (h *Handler) known(c echo.Context) error {
	var req struct {
		Nodes []string `json:"nodes"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	nodes, err := parseHexAll(req.Nodes)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	known, err := h.dispatcher.Known(c.Request().Context(), nodes)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, known)
}

func (h *Handler) between(c echo.Context) error {
	var req struct {
		Pairs [][2]string `json:"pairs"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	pairs := make([]Pair, len(req.Pairs))
	for i, p := range req.Pairs {
		top, err := hg.NodeHashFromHex(p[0])
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		bottom, err := hg.NodeHashFromHex(p[1])
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		pairs[i] = Pair{Top: top, Bottom: bottom}
	}

	chains, err := h.dispatcher.Between(c.Request().Context(), pairs)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	out := make([][]string, len(chains))
	for i, chain := range chains {
		out[i] = hexAll(chain)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) getbundle(c echo.Context) error {
	var req struct {
		Heads    []string `json:"heads" validate:"required,min=1"`
		Common   []string `json:"common"`
		Listkeys []string `json:"listkeys"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	heads, err := parseHexAll(req.Heads)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	common, err := parseHexAll(req.Common)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	out, err := h.dispatcher.Getbundle(c.Request().Context(), GetbundleArgs{Heads: heads, Common: common, Listkeys: req.Listkeys})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"bundle": base64.StdEncoding.EncodeToString(out)})
}

func (h *Handler) changegroup(c echo.Context) error {
	var req struct {
		Roots []string `json:"roots"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	roots, err := parseHexAll(req.Roots)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.dispatcher.Changegroup(c.Request().Context(), roots); err != nil {
		return protocolError(err)
	}
	return c.NoContent(http.StatusOK)
}

func (h *Handler) unbundle(c echo.Context) error {
	var req struct {
		Heads []string `json:"heads"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	heads, err := parseHexAll(req.Heads)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.dispatcher.Unbundle(c.Request().Context(), heads); err != nil {
		return protocolError(err)
	}
	return c.NoContent(http.StatusOK)
}

func protocolError(err error) error {
	if errors.Is(err, hg.ErrProtocolViolation) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func hexAll(nodes []hg.NodeHash) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.String()
	}
	return out
}

func parseHexAll(raw []string) ([]hg.NodeHash, error) {
	out := make([]hg.NodeHash, len(raw))
	for i, s := range raw {
		node, err := hg.NodeHashFromHex(s)
		if err != nil {
			return nil, err
		}
		out[i] = node
	}
	return out, nil
}
