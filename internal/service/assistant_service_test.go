package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"doc-assistant-be/internal/constant"
	"doc-assistant-be/internal/dto"
	"doc-assistant-be/internal/pkg/logger"
	"doc-assistant-be/pkg/nlp/disambiguation"
	nlpEntity "doc-assistant-be/pkg/nlp/entity"
	"doc-assistant-be/pkg/nlp/intent"
	"doc-assistant-be/pkg/render"
	"doc-assistant-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type assistantFixture struct {
	*testStack
	exports   *recordingPublisher
	assistant IAssistantService
}

func newAssistantFixture(t *testing.T, renderer render.Renderer) *assistantFixture {
	t.Helper()
	st := newTestStack(t, renderer)

	table, err := intent.DefaultTable()
	require.NoError(t, err)

	exports := &recordingPublisher{}
	a := NewAssistantService(
		intent.NewClassifier(table),
		nlpEntity.NewExtractor(nlpEntity.Options{}),
		disambiguation.NewPolicy("body"),
		st.contexts,
		st.documents,
		exports,
		logger.NewNopLogger(),
	)
	return &assistantFixture{testStack: st, exports: exports, assistant: a}
}

func (f *assistantFixture) send(t *testing.T, user, text string) *dto.AssistantReplyResponse {
	t.Helper()
	out, err := f.assistant.Process(context.Background(), user, text)
	require.NoError(t, err)
	require.NotNil(t, out)
	return out
}

func (f *assistantFixture) session(t *testing.T, user string) *store.UserContext {
	t.Helper()
	sess, err := f.contexts.Load(context.Background(), user)
	require.NoError(t, err)
	return sess
}

func TestAssistantConversationFlow(t *testing.T) {
	f := newAssistantFixture(t, nil)
	user := "628111"

	out := f.send(t, user, "Buat dokumen baru tentang Laporan Keuangan")
	assert.Equal(t, "create_document", out.Intent)
	assert.Equal(t, fmt.Sprintf(constant.MessageDocumentCreated, "DOCX", "Laporan Keuangan"), out.Reply)
	require.NotNil(t, out.DocumentId)
	docID := *out.DocumentId

	sess := f.session(t, user)
	assert.Equal(t, docID, sess.CurrentDocumentID)
	assert.Equal(t, "Laporan Keuangan", sess.LastDocument.Name)
	v, _ := sess.Get(store.FieldLastIntent)
	assert.Equal(t, "create_document", v)

	out = f.send(t, user, "Tambahkan teks ke bagian pendahuluan: Ini adalah laporan kuartal ketiga")
	assert.Equal(t, fmt.Sprintf(constant.MessageTextAdded, "pendahuluan"), out.Reply)

	out = f.send(t, user, "Pendapatan naik sepuluh persen")
	assert.True(t, out.Fallback)
	assert.Equal(t, "add_text", out.Intent)
	assert.Equal(t, fmt.Sprintf(constant.MessageTextAdded, "body"), out.Reply)

	out = f.send(t, user, "ubah 'sepuluh' menjadi 'dua belas'")
	assert.Equal(t, fmt.Sprintf(constant.MessageTextEdited, "sepuluh", "dua belas", "body"), out.Reply)

	out = f.send(t, user, "ubah 'tidak ada' menjadi 'x'")
	assert.Equal(t, fmt.Sprintf(constant.MessageTextNotFound, "tidak ada", "body"), out.Reply)

	doc, err := f.documents.GetDocument(context.Background(), docID)
	require.NoError(t, err)
	require.Len(t, doc.Sections, 2)
	assert.Equal(t, "Ini adalah laporan kuartal ketiga", doc.Sections[0].Content)
	assert.Equal(t, "Pendapatan naik dua belas persen", doc.Sections[1].Content)

	out = f.send(t, user, "Export dokumen sebagai PDF")
	assert.Equal(t, fmt.Sprintf(constant.MessageExported, "PDF"), out.Reply)
	require.NotNil(t, out.Artifact)
	assert.Equal(t, "pdf", out.Artifact.Format)
	require.Equal(t, 1, f.exports.Len())

	var msg dto.ExportedArtifactMessage
	require.NoError(t, json.Unmarshal(f.exports.payloads[0], &msg))
	assert.Equal(t, user, msg.UserId)
	assert.Equal(t, docID, msg.DocumentId)
	assert.Equal(t, out.Artifact.Handle, msg.Artifact.Handle)

	v, _ = f.session(t, user).Get(store.FieldLastFormat)
	assert.Equal(t, "pdf", v)
}

func TestAssistantWithoutActiveDocument(t *testing.T) {
	f := newAssistantFixture(t, nil)

	for _, text := range []string{
		"Tambahkan teks: halo",
		"ubah 'a' menjadi 'b'",
		"Export dokumen sebagai docx",
	} {
		out := f.send(t, "u-none", text)
		assert.Equal(t, constant.MessageNoActiveDoc, out.Reply, text)
	}
	assert.Zero(t, f.exports.Len())

	count, err := f.docRepo.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)

	out := f.send(t, "u-none", "selamat pagi")
	assert.Equal(t, "unknown", out.Intent)
	assert.False(t, out.Fallback)
	assert.Equal(t, constant.MessageUnknown, out.Reply)

	out = f.send(t, "u-none", "bantuan")
	assert.Equal(t, constant.MessageHelp, out.Reply)

	// Even unknown messages are recorded.
	v, _ := f.session(t, "u-none").Get(store.FieldLastIntent)
	assert.Equal(t, "help", v)
}

func TestAssistantEditWithoutParameters(t *testing.T) {
	f := newAssistantFixture(t, nil)
	f.send(t, "u", "buat dokumen catatan")

	out := f.send(t, "u", "ganti '' dengan 'x'")
	assert.Equal(t, constant.MessageEditParamsError, out.Reply)
}

func TestAssistantClearsStaleDocument(t *testing.T) {
	f := newAssistantFixture(t, nil)
	out := f.send(t, "u", "create new document about Roadmap")
	require.NotNil(t, out.DocumentId)

	require.NoError(t, f.documents.DeleteDocument(context.Background(), *out.DocumentId))

	out = f.send(t, "u", "add text: first milestone")
	assert.Equal(t, constant.MessageNoActiveDoc, out.Reply)
	assert.False(t, f.session(t, "u").HasActiveDocument())

	// With the reference gone, free text is no longer routed to add_text.
	out = f.send(t, "u", "second milestone")
	assert.Equal(t, constant.MessageUnknown, out.Reply)
}

func TestAssistantExportFailure(t *testing.T) {
	f := newAssistantFixture(t, renderFunc(func(context.Context, render.Document, string) (*render.Artifact, error) {
		return nil, fmt.Errorf("disk full")
	}))
	f.send(t, "u", "buat dokumen Anggaran")

	out := f.send(t, "u", "kirim dokumen sebagai pdf")
	assert.Equal(t, constant.MessageExportFailed, out.Reply)
	assert.Nil(t, out.Artifact)
	assert.Zero(t, f.exports.Len())
	assert.True(t, f.session(t, "u").HasActiveDocument())
}

func TestAssistantHandleAttachment(t *testing.T) {
	f := newAssistantFixture(t, nil)
	user := "628300"
	src := inboxFile(t, f.files, "incoming", "isi file")

	out, err := f.assistant.HandleAttachment(context.Background(), user, src, "proposal.docx")
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf(constant.MessageDocumentStored, "proposal.docx"), out.Reply)
	require.NotNil(t, out.DocumentId)

	sess := f.session(t, user)
	assert.False(t, sess.HasActiveDocument())
	require.NotNil(t, sess.LastDocument)
	assert.Equal(t, *out.DocumentId, sess.LastDocument.ID)
	assert.Equal(t, "proposal.docx", sess.LastDocument.Name)

	// Without a document being edited, free text stays unknown.
	reply := f.send(t, user, "catatan tambahan")
	assert.Equal(t, "unknown", reply.Intent)

	out, err = f.assistant.HandleAttachment(context.Background(), user, filepath.Join(f.files.InboxPath(), "gone"), "gone.pdf")
	require.NoError(t, err)
	assert.Equal(t, constant.MessageTryAgain, out.Reply)
}

func TestAssistantAttachmentKeepsActiveDocument(t *testing.T) {
	f := newAssistantFixture(t, nil)
	ctx := context.Background()
	user := "628301"

	created := f.send(t, user, "Buat dokumen baru tentang Laporan")
	require.NotNil(t, created.DocumentId)
	docID := *created.DocumentId

	out, err := f.assistant.HandleAttachment(ctx, user, inboxFile(t, f.files, "foto", "jpeg"), "foto.pdf")
	require.NoError(t, err)
	require.NotNil(t, out.DocumentId)
	attachmentID := *out.DocumentId

	sess := f.session(t, user)
	assert.Equal(t, docID, sess.CurrentDocumentID)
	assert.Equal(t, attachmentID, sess.LastDocument.ID)

	reply := f.send(t, user, "Pendapatan naik sepuluh persen")
	assert.True(t, reply.Fallback)
	require.NotNil(t, reply.DocumentId)
	assert.Equal(t, docID, *reply.DocumentId)

	doc, err := f.documents.GetDocument(ctx, docID)
	require.NoError(t, err)
	require.Len(t, doc.Sections, 1)
	assert.Equal(t, "Pendapatan naik sepuluh persen", doc.Sections[0].Content)

	attached, err := f.documents.GetDocument(ctx, attachmentID)
	require.NoError(t, err)
	assert.Empty(t, attached.Sections)
}

func TestAssistantRejectsAttachmentsOutsideInbox(t *testing.T) {
	f := newAssistantFixture(t, nil)
	ctx := context.Background()

	outside := filepath.Join(t.TempDir(), "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("rahasia"), 0o644))
	link := filepath.Join(f.files.InboxPath(), "link.txt")
	require.NoError(t, os.Symlink(outside, link))

	for _, path := range []string{
		"/etc/passwd",
		outside,
		"../documents",
		filepath.Join(f.files.InboxPath(), "..", "..", "secret.txt"),
		link,
		"/dev/zero",
	} {
		out, err := f.assistant.HandleAttachment(ctx, "attacker", path, "x.txt")
		require.NoError(t, err, path)
		assert.Equal(t, constant.MessageAttachmentDenied, out.Reply, path)
		assert.Nil(t, out.DocumentId, path)
	}

	count, err := f.docRepo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	ids, err := f.files.ListDocumentIDs()
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestAssistantExportSurvivesHandOffFailure(t *testing.T) {
	f := newAssistantFixture(t, nil)
	f.exports.fail = fmt.Errorf("bus closed")
	f.send(t, "u", "buat dokumen Anggaran")

	out := f.send(t, "u", "Export dokumen sebagai docx")
	assert.Equal(t, fmt.Sprintf(constant.MessageExported, "DOCX"), out.Reply)
	require.NotNil(t, out.Artifact)
	assert.Zero(t, f.exports.Len())
}
