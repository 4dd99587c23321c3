package constant

// User-facing replies. The assistant answers in Indonesian.
const (
	MessageDocumentCreated  = "Dokumen %s baru dengan judul '%s' telah dibuat. Apa yang ingin Anda tambahkan ke dalamnya?"
	MessageTextAdded        = "Teks telah ditambahkan ke bagian %s. Apa yang ingin Anda lakukan selanjutnya?"
	MessageTextEdited       = "Teks '%s' telah diubah menjadi '%s' di bagian %s."
	MessageTextNotFound     = "Tidak dapat menemukan teks '%s' di bagian %s."
	MessageEditParamsError  = "Mohon tentukan teks yang ingin diubah dan penggantinya."
	MessageExported         = "Dokumen Anda telah diekspor sebagai %s. Sedang mengirim file..."
	MessageExportFailed     = "Terjadi kesalahan saat mengekspor dokumen. Silakan coba lagi nanti."
	MessageNoActiveDoc      = "Tidak ada dokumen aktif. Silakan buat atau pilih dokumen terlebih dahulu."
	MessageDocumentStored   = "Dokumen '%s' telah diterima dan disimpan."
	MessageAttachmentDenied = "Maaf, dokumen tersebut tidak dapat diterima."
	MessageUnknown          = "Saya tidak yakin apa yang ingin Anda lakukan dengan dokumen Anda. Anda dapat membuat, mengedit, atau mengekspor dokumen."
	MessageTryAgain         = "Maaf, terjadi gangguan saat memproses pesan Anda. Silakan coba lagi."

	MessageHelp = `Berikut adalah perintah yang dapat Anda gunakan:

- "Buat dokumen baru tentang [judul]"
- "Tambahkan teks ke bagian [bagian]: [isi]"
- "Ubah '[teks lama]' menjadi '[teks baru]'"
- "Ekspor dokumen sebagai PDF/DOCX"
- "Bantuan" untuk melihat perintah ini lagi

Selama ada dokumen aktif, pesan biasa akan langsung ditambahkan ke bagian isi.`
)

// Event types published on the lifecycle bus.
const (
	EventDocumentCreated  = "DOCUMENT_CREATED"
	EventDocumentIngested = "DOCUMENT_INGESTED"
	EventDocumentExported = "DOCUMENT_EXPORTED"
	EventLifecycleSwept   = "LIFECYCLE_SWEPT"
)

// TopicDocumentExported carries export artifacts to the delivery consumer.
const TopicDocumentExported = "document.exported"
