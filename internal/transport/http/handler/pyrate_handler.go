package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pyrates-identitydb/internal/service"
	mdw "pyrates-identitydb/internal/transport/http/middleware"
	resp "pyrates-identitydb/internal/transport/http/response"
)

type PyrateHandler struct {
	svc *service.PyrateService
	log *zap.Logger
}

func NewPyrateHandler(svc *service.PyrateService, l *zap.Logger) *PyrateHandler {
	if l == nil {
		l = zap.NewNop()
	}
	return &PyrateHandler{svc: svc, log: l}
}

type idOut struct {
	ID string `json:"_id"`
}

// Mount 注册 /pyrates 下的 CRUD
func (h *PyrateHandler) Mount(g *gin.RouterGroup) {
	g.GET("/pyrates", h.List)
	g.GET("/pyrates/:pyrate", h.Get)
	g.POST("/pyrates", h.Create)
	g.PUT("/pyrates/:pyrate", h.Update)
	g.DELETE("/pyrates/:pyrate", h.Delete)
}

func (h *PyrateHandler) List(c *gin.Context) {
	out, err := h.svc.List(c.Request.Context(), mdw.Credential(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.JSON(c, http.StatusOK, out)
}

func (h *PyrateHandler) Get(c *gin.Context) {
	out, err := h.svc.Get(c.Request.Context(), mdw.Credential(c), c.Param("pyrate"))
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.JSON(c, http.StatusOK, out)
}

func (h *PyrateHandler) Create(c *gin.Context) {
	body, ok := h.body(c, "")
	if !ok {
		return
	}
	id, err := h.svc.Create(c.Request.Context(), mdw.Credential(c), body)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.JSON(c, http.StatusCreated, idOut{ID: id})
}

func (h *PyrateHandler) Update(c *gin.Context) {
	body, ok := h.body(c, c.Param("pyrate"))
	if !ok {
		return
	}
	res, err := h.svc.Update(c.Request.Context(), mdw.Credential(c), c.Param("pyrate"), body)
	if err != nil {
		h.fail(c, err)
		return
	}
	if res.PasswordChanged {
		resp.Empty(c, http.StatusAccepted)
		return
	}
	resp.JSON(c, http.StatusOK, idOut{ID: res.ID})
}

func (h *PyrateHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), mdw.Credential(c), c.Param("pyrate")); err != nil {
		h.fail(c, err)
		return
	}
	resp.Empty(c, http.StatusAccepted)
}

// body 读取失败时先补做鉴权与记录检查，401/404 优先于 413/400
func (h *PyrateHandler) body(c *gin.Context, key string) ([]byte, bool) {
	b, err := c.GetRawData()
	if err == nil {
		return b, true
	}
	if aerr := h.svc.Admit(c.Request.Context(), mdw.Credential(c), key); aerr != nil {
		h.fail(c, aerr)
		return nil, false
	}
	if resp.BodyTooLarge(err) {
		resp.Fail(c, http.StatusRequestEntityTooLarge, err)
	} else {
		resp.Fail(c, http.StatusBadRequest, err)
	}
	return nil, false
}

func (h *PyrateHandler) fail(c *gin.Context, err error) {
	code := service.CodeOf(err)
	if code >= http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	resp.Fail(c, code, err)
}
