package controller

import (
	"time"

	"doc-assistant-be/internal/constant"
	"doc-assistant-be/internal/dto"
	"doc-assistant-be/internal/pkg/serverutils"
	"doc-assistant-be/internal/service"
	"doc-assistant-be/pkg/store"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IAdminController interface {
	RegisterRoutes(r fiber.Router, jwtMiddleware fiber.Handler)

	// Context Store
	GetSession(ctx *fiber.Ctx) error
	SaveSession(ctx *fiber.Ctx) error
	ClearSession(ctx *fiber.Ctx) error

	// Document Repository
	GetDocumentMetadata(ctx *fiber.Ctx) error
	GetDocumentPath(ctx *fiber.Ctx) error
	DeleteDocument(ctx *fiber.Ctx) error

	// Lifecycle
	Cleanup(ctx *fiber.Ctx) error
	GetEventStats(ctx *fiber.Ctx) error
}

type adminController struct {
	contexts    service.IContextService
	documents   service.IDocumentService
	reaper      service.IReaperService
	audit       *service.AuditService
	sessionTTL  time.Duration
	documentTTL time.Duration
}

func NewAdminController(
	contexts service.IContextService,
	documents service.IDocumentService,
	reaper service.IReaperService,
	audit *service.AuditService,
	sessionTTL, documentTTL time.Duration,
) IAdminController {
	return &adminController{
		contexts:    contexts,
		documents:   documents,
		reaper:      reaper,
		audit:       audit,
		sessionTTL:  sessionTTL,
		documentTTL: documentTTL,
	}
}

func (c *adminController) RegisterRoutes(r fiber.Router, jwtMiddleware fiber.Handler) {
	h := r.Group("/admin/v1", jwtMiddleware)

	h.Get("/sessions/:userId", c.GetSession)
	h.Put("/sessions/:userId", c.SaveSession)
	h.Delete("/sessions/:userId", c.ClearSession)

	h.Get("/documents/:id/metadata", c.GetDocumentMetadata)
	h.Get("/documents/:id/path", c.GetDocumentPath)
	h.Delete("/documents/:id", c.DeleteDocument)

	h.Post("/cleanup", c.Cleanup)
	h.Get("/events/stats", c.GetEventStats)
}

func toSessionResponse(sess *store.UserContext) *dto.UserSessionResponse {
	res := &dto.UserSessionResponse{
		UserId:       sess.UserID,
		Fields:       sess.Fields,
		LastActivity: sess.LastActivity,
	}
	if sess.HasActiveDocument() {
		id := sess.CurrentDocumentID
		res.CurrentDocumentId = &id
	}
	if sess.LastDocument != nil {
		res.LastDocument = &dto.DocumentRefResponse{Id: sess.LastDocument.ID, Name: sess.LastDocument.Name}
	}
	return res
}

func (c *adminController) GetSession(ctx *fiber.Ctx) error {
	userId := ctx.Params("userId")
	sess, err := c.contexts.Load(ctx.UserContext(), userId)
	if err != nil {
		return err
	}
	if sess == nil {
		return constant.ErrSessionNotFound
	}
	return ctx.JSON(serverutils.SuccessResponse("Session retrieved", toSessionResponse(sess)))
}

func (c *adminController) SaveSession(ctx *fiber.Ctx) error {
	userId := ctx.Params("userId")

	var req dto.SaveUserSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	sess := store.NewUserContext(userId, time.Now())
	if req.CurrentDocumentId != nil {
		sess.CurrentDocumentID = *req.CurrentDocumentId
	}
	if req.LastDocument != nil {
		sess.LastDocument = &store.DocumentRef{ID: req.LastDocument.Id, Name: req.LastDocument.Name}
	}
	for k, v := range req.Fields {
		sess.Set(k, v)
	}

	if err := c.contexts.Save(ctx.UserContext(), sess); err != nil {
		return err
	}
	saved, err := c.contexts.Load(ctx.UserContext(), userId)
	if err != nil {
		return err
	}
	if saved == nil {
		saved = sess
	}
	return ctx.JSON(serverutils.SuccessResponse("Session saved", toSessionResponse(saved)))
}

func (c *adminController) ClearSession(ctx *fiber.Ctx) error {
	if err := c.contexts.Clear(ctx.UserContext(), ctx.Params("userId")); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Session cleared", nil))
}

func parseDocumentId(ctx *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Invalid document ID")
	}
	return id, nil
}

func (c *adminController) GetDocumentMetadata(ctx *fiber.Ctx) error {
	id, err := parseDocumentId(ctx)
	if err != nil {
		return err
	}

	doc, err := c.documents.GetDocument(ctx.UserContext(), id)
	if err != nil {
		return err
	}

	res := dto.DocumentMetadataResponse{
		Id:               doc.Id,
		Title:            doc.Title,
		Type:             doc.Type,
		OwnerUserId:      doc.Metadata.OwnerUserId,
		OriginalFilename: doc.Metadata.OriginalFilename,
		FileExtension:    doc.Metadata.FileExtension,
		FileSize:         doc.Metadata.FileSize,
		SectionCount:     len(doc.Sections),
		CreatedAt:        doc.CreatedAt,
		UpdatedAt:        doc.UpdatedAt,
	}
	return ctx.JSON(serverutils.SuccessResponse("Document metadata", res))
}

func (c *adminController) GetDocumentPath(ctx *fiber.Ctx) error {
	id, err := parseDocumentId(ctx)
	if err != nil {
		return err
	}

	path, err := c.documents.GetDocumentPath(ctx.UserContext(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Document path", dto.DocumentPathResponse{Id: id, Path: path}))
}

func (c *adminController) DeleteDocument(ctx *fiber.Ctx) error {
	id, err := parseDocumentId(ctx)
	if err != nil {
		return err
	}
	if err := c.documents.DeleteDocument(ctx.UserContext(), id); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Document deleted", nil))
}

func (c *adminController) Cleanup(ctx *fiber.Ctx) error {
	var req dto.CleanupRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	sessionTTL, documentTTL := c.sessionTTL, c.documentTTL
	if req.SessionTtlSeconds != nil {
		sessionTTL = time.Duration(*req.SessionTtlSeconds) * time.Second
	}
	if req.DocumentTtlSeconds != nil {
		documentTTL = time.Duration(*req.DocumentTtlSeconds) * time.Second
	}

	res, err := c.reaper.Sweep(ctx.UserContext(), sessionTTL, documentTTL)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Cleanup finished", dto.CleanupResponse{
		SessionsReclaimed:  res.SessionsReclaimed,
		DocumentsReclaimed: res.DocumentsReclaimed,
		ArtifactsReclaimed: res.ArtifactsReclaimed,
	}))
}

func (c *adminController) GetEventStats(ctx *fiber.Ctx) error {
	counts := map[string]int{}
	if c.audit != nil {
		counts = c.audit.Counts()
	}
	return ctx.JSON(serverutils.SuccessResponse("Event counts", counts))
}
