package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"doc-assistant-be/internal/constant"
	"doc-assistant-be/internal/dto"
	"doc-assistant-be/internal/entity"
	"doc-assistant-be/internal/pkg/logger"
	"doc-assistant-be/pkg/nlp/disambiguation"
	nlpEntity "doc-assistant-be/pkg/nlp/entity"
	"doc-assistant-be/pkg/nlp/intent"
	"doc-assistant-be/pkg/render"
	"doc-assistant-be/pkg/store"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// IAssistantService is the command dispatcher: one utterance in, one reply out.
type IAssistantService interface {
	Process(ctx context.Context, userID, text string) (*dto.AssistantReplyResponse, error)
	HandleAttachment(ctx context.Context, userID, localPath, filename string) (*dto.AssistantReplyResponse, error)
}

type assistantService struct {
	classifier *intent.Classifier
	extractor  *nlpEntity.Extractor
	policy     *disambiguation.Policy
	contexts   IContextService
	documents  IDocumentService
	exports    IPublisherService
	logger     logger.ILogger
}

func NewAssistantService(
	classifier *intent.Classifier,
	extractor *nlpEntity.Extractor,
	policy *disambiguation.Policy,
	contexts IContextService,
	documents IDocumentService,
	exports IPublisherService,
	log logger.ILogger,
) IAssistantService {
	return &assistantService{
		classifier: classifier,
		extractor:  extractor,
		policy:     policy,
		contexts:   contexts,
		documents:  documents,
		exports:    exports,
		logger:     log,
	}
}

// attachmentIntent labels replies to inbound files; it is not a classifier intent.
const attachmentIntent = intent.Intent("attachment")

func reply(text string, in intent.Intent) *dto.AssistantReplyResponse {
	return &dto.AssistantReplyResponse{Reply: text, Intent: in.String()}
}

// Process classifies the utterance, resolves it against the user's context
// and runs the resulting command. Failures of collaborators become user
// facing replies; an error is returned only when ctx is done.
func (s *assistantService) Process(ctx context.Context, userID, text string) (*dto.AssistantReplyResponse, error) {
	ctx, span := otel.Tracer("assistant").Start(ctx, "assistant.Process")
	defer span.End()

	res := s.classifier.Classify(text)
	entities := s.extractor.Extract(res, text)

	var out *dto.AssistantReplyResponse
	_, err := s.contexts.Update(ctx, userID, func(sess *store.UserContext) error {
		decision := s.policy.Resolve(res.Intent, entities, text, sess)
		if decision.Fallback {
			s.logger.Info("ASSISTANT", "Unknown utterance routed to active document", map[string]interface{}{
				"user_id":     userID,
				"document_id": sess.CurrentDocumentID.String(),
			})
		}

		sess.Set(store.FieldLastIntent, decision.Intent.String())
		out = s.dispatch(ctx, userID, sess, decision)
		out.Fallback = decision.Fallback
		return nil
	})

	span.SetAttributes(
		attribute.String("assistant.intent", res.Intent.String()),
		attribute.Bool("assistant.fallback", out != nil && out.Fallback),
	)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.logger.Error("ASSISTANT", "Context store failure", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		return reply(constant.MessageTryAgain, res.Intent), nil
	}
	return out, nil
}

func (s *assistantService) dispatch(ctx context.Context, userID string, sess *store.UserContext, d disambiguation.Decision) *dto.AssistantReplyResponse {
	switch d.Intent {
	case intent.CreateDocument:
		return s.createDocument(ctx, userID, sess, d)
	case intent.AddText:
		return s.addText(ctx, sess, d)
	case intent.EditText:
		return s.editText(ctx, sess, d)
	case intent.ExportDocument:
		return s.exportDocument(ctx, userID, sess, d)
	case intent.Help:
		return reply(constant.MessageHelp, d.Intent)
	default:
		return reply(constant.MessageUnknown, intent.Unknown)
	}
}

func (s *assistantService) createDocument(ctx context.Context, userID string, sess *store.UserContext, d disambiguation.Decision) *dto.AssistantReplyResponse {
	title := d.Entities.GetOr(nlpEntity.DocumentTitle, nlpEntity.DefaultTitle)
	docType := d.Entities.GetOr(nlpEntity.DocumentType, s.extractor.DefaultDocumentType())

	doc, err := s.documents.CreateDocument(ctx, title, docType, entity.DocumentMetadata{OwnerUserId: userID})
	if err != nil {
		return s.failure(d.Intent, userID, err)
	}
	sess.SetCurrentDocument(doc.Id, doc.Title)

	out := reply(fmt.Sprintf(constant.MessageDocumentCreated, strings.ToUpper(docType), title), d.Intent)
	out.DocumentId = &doc.Id
	return out
}

func (s *assistantService) addText(ctx context.Context, sess *store.UserContext, d disambiguation.Decision) *dto.AssistantReplyResponse {
	if !sess.HasActiveDocument() {
		return reply(constant.MessageNoActiveDoc, d.Intent)
	}
	docID := sess.CurrentDocumentID
	section := d.Entities.GetOr(nlpEntity.Section, s.extractor.DefaultSection())
	content, _ := d.Entities.Get(nlpEntity.Content)

	if err := s.documents.AddText(ctx, docID, section, content); err != nil {
		return s.recoverMissing(sess, d.Intent, err)
	}

	out := reply(fmt.Sprintf(constant.MessageTextAdded, section), d.Intent)
	out.DocumentId = &docID
	return out
}

func (s *assistantService) editText(ctx context.Context, sess *store.UserContext, d disambiguation.Decision) *dto.AssistantReplyResponse {
	if !sess.HasActiveDocument() {
		return reply(constant.MessageNoActiveDoc, d.Intent)
	}
	oldText, hasOld := d.Entities.Get(nlpEntity.OldText)
	newText, hasNew := d.Entities.Get(nlpEntity.NewText)
	if !hasOld || !hasNew || oldText == "" {
		return reply(constant.MessageEditParamsError, d.Intent)
	}
	docID := sess.CurrentDocumentID
	section := d.Entities.GetOr(nlpEntity.Section, s.extractor.DefaultSection())

	ok, err := s.documents.EditText(ctx, docID, section, oldText, newText)
	if err != nil {
		return s.recoverMissing(sess, d.Intent, err)
	}

	var out *dto.AssistantReplyResponse
	if ok {
		out = reply(fmt.Sprintf(constant.MessageTextEdited, oldText, newText, section), d.Intent)
	} else {
		out = reply(fmt.Sprintf(constant.MessageTextNotFound, oldText, section), d.Intent)
	}
	out.DocumentId = &docID
	return out
}

func (s *assistantService) exportDocument(ctx context.Context, userID string, sess *store.UserContext, d disambiguation.Decision) *dto.AssistantReplyResponse {
	if !sess.HasActiveDocument() {
		return reply(constant.MessageNoActiveDoc, d.Intent)
	}
	docID := sess.CurrentDocumentID
	format := d.Entities.GetOr(nlpEntity.Format, nlpEntity.FormatDocx)

	artifact, err := s.documents.ExportDocument(ctx, docID, format)
	if err != nil {
		if errors.Is(err, constant.ErrExport) {
			return reply(constant.MessageExportFailed, d.Intent)
		}
		return s.recoverMissing(sess, d.Intent, err)
	}
	sess.Set(store.FieldLastFormat, artifact.Format)

	if s.exports != nil {
		if err := s.handOff(ctx, userID, docID, artifact); err != nil {
			s.logger.Error("ASSISTANT", "Failed to hand artifact to delivery", map[string]interface{}{
				"user_id":     userID,
				"document_id": docID.String(),
				"error":       err.Error(),
			})
		}
	}

	out := reply(fmt.Sprintf(constant.MessageExported, strings.ToUpper(artifact.Format)), d.Intent)
	out.DocumentId = &docID
	out.Artifact = dto.NewArtifactResponse(artifact)
	return out
}

func (s *assistantService) handOff(ctx context.Context, userID string, docID uuid.UUID, artifact *render.Artifact) error {
	payload, err := json.Marshal(dto.ExportedArtifactMessage{
		UserId:     userID,
		DocumentId: docID,
		Artifact:   *artifact,
	})
	if err != nil {
		return err
	}
	return s.exports.Publish(ctx, payload)
}

// recoverMissing turns a repository error on the current document into a reply.
// A vanished document clears the stale reference.
func (s *assistantService) recoverMissing(sess *store.UserContext, in intent.Intent, err error) *dto.AssistantReplyResponse {
	if errors.Is(err, constant.ErrDocumentNotFound) {
		s.logger.Info("ASSISTANT", "Current document is gone, clearing reference", map[string]interface{}{
			"user_id":     sess.UserID,
			"document_id": sess.CurrentDocumentID.String(),
		})
		sess.ClearCurrentDocument()
		return reply(constant.MessageNoActiveDoc, in)
	}
	return s.failure(in, sess.UserID, err)
}

func (s *assistantService) failure(in intent.Intent, userID string, err error) *dto.AssistantReplyResponse {
	s.logger.Error("ASSISTANT", "Command failed", map[string]interface{}{
		"user_id": userID,
		"intent":  in.String(),
		"error":   err.Error(),
	})
	return reply(constant.MessageTryAgain, in)
}

// HandleAttachment ingests an uploaded document and records it as the last
// document. The document being edited stays active.
func (s *assistantService) HandleAttachment(ctx context.Context, userID, localPath, filename string) (*dto.AssistantReplyResponse, error) {
	ctx, span := otel.Tracer("assistant").Start(ctx, "assistant.HandleAttachment")
	defer span.End()

	doc, err := s.documents.IngestFile(ctx, userID, localPath, filename)
	if err != nil {
		if errors.Is(err, constant.ErrAttachmentRejected) {
			s.logger.Warn("ASSISTANT", "Attachment rejected", map[string]interface{}{
				"user_id":  userID,
				"filename": filename,
				"error":    err.Error(),
			})
			return reply(constant.MessageAttachmentDenied, attachmentIntent), nil
		}
		s.logger.Error("ASSISTANT", "Attachment ingestion failed", map[string]interface{}{
			"user_id":  userID,
			"filename": filename,
			"error":    err.Error(),
		})
		return reply(constant.MessageTryAgain, attachmentIntent), nil
	}

	name := doc.Metadata.OriginalFilename
	_, err = s.contexts.Update(ctx, userID, func(sess *store.UserContext) error {
		sess.LastDocument = &store.DocumentRef{ID: doc.Id, Name: name}
		sess.Set(store.FieldLastIntent, attachmentIntent.String())
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.logger.Error("ASSISTANT", "Context store failure", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		return reply(constant.MessageTryAgain, attachmentIntent), nil
	}

	out := reply(fmt.Sprintf(constant.MessageDocumentStored, name), attachmentIntent)
	out.DocumentId = &doc.Id
	return out, nil
}
