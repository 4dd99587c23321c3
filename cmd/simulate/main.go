// Command simulate replays a scripted conversation through the assistant
// using in-memory storage. Pass a file with one utterance per line to
// replace the built-in script; lines starting with "@" attach a local file.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"doc-assistant-be/internal/bootstrap"
	"doc-assistant-be/internal/config"
	"doc-assistant-be/internal/dto"
	"doc-assistant-be/internal/pkg/logger"
	"doc-assistant-be/pkg/delivery"

	"github.com/fatih/color"
)

var defaultScript = []string{
	"bantuan",
	"Buat dokumen baru tentang Laporan Kuartal",
	"Tambahkan teks ke bagian pendahuluan: Laporan ini merangkum kuartal ketiga",
	"Pendapatan naik sepuluh persen",
	"ubah 'sepuluh' menjadi 'dua belas'",
	"ubah 'lima' menjadi 'enam'",
	"Export dokumen sebagai PDF",
	"apa kabar",
}

func main() {
	user := flag.String("user", "628000000001", "sender id")
	script := flag.String("script", "", "file with one utterance per line")
	flag.Parse()

	lines := defaultScript
	if *script != "" {
		var err error
		if lines, err = readScript(*script); err != nil {
			log.Fatalf("Failed to read script: %v", err)
		}
	}

	storage, err := os.MkdirTemp("", "doc-assistant-sim-*")
	if err != nil {
		log.Fatalf("Failed to create storage dir: %v", err)
	}
	defer os.RemoveAll(storage)

	cfg := config.Load()
	cfg.Storage.Path = storage
	cfg.Storage.SessionStore = "memory"
	cfg.Storage.DocumentStore = "memory"

	sender := delivery.NewRecordingSender()
	container, err := bootstrap.NewContainer(cfg, bootstrap.Options{
		Sender:      sender,
		DisableNats: true,
		Logger:      logger.NewNopLogger(),
	})
	if err != nil {
		log.Fatalf("Failed to bootstrap: %v", err)
	}
	defer container.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := container.ConsumerService.Consume(ctx); err != nil {
		log.Fatalf("Failed to start consumer: %v", err)
	}

	color.Cyan("=== Document Assistant Simulation (user %s) ===\n", *user)

	for _, line := range lines {
		var (
			out *dto.AssistantReplyResponse
			err error
		)
		if path, ok := strings.CutPrefix(line, "@"); ok {
			color.Yellow("\nUSER: [attachment] %s", path)
			var staged string
			if staged, err = stage(path, container.InboxPath); err == nil {
				out, err = container.AssistantService.HandleAttachment(ctx, *user, staged, filepath.Base(path))
			}
		} else {
			color.Yellow("\nUSER: %s", line)
			out, err = container.AssistantService.Process(ctx, *user, line)
		}
		if err != nil {
			color.Red("Error: %v", err)
			continue
		}

		tag := out.Intent
		if out.Fallback {
			tag += ", fallback"
		}
		color.Green("BOT (%s): %s", tag, out.Reply)
		if out.Artifact != nil {
			fmt.Printf("  artifact: %s (%d bytes)\n", out.Artifact.Filename, out.Artifact.Size)
		}
	}

	// Let the delivery consumer drain.
	time.Sleep(200 * time.Millisecond)
	for _, d := range sender.Deliveries() {
		color.Cyan("\nDelivered %s to %s", d.Artifact.Filename, d.UserID)
		if body, err := os.ReadFile(d.Artifact.Handle); err == nil {
			fmt.Println(string(body))
		}
	}
}

func readScript(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" && !strings.HasPrefix(line, "#") {
			lines = append(lines, line)
		}
	}
	return lines, sc.Err()
}

// stage copies a script attachment into the inbox, the way the messaging
// transport drops downloaded media.
func stage(path, inbox string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	dest := filepath.Join(inbox, fmt.Sprintf("%d-%s", time.Now().UnixNano(), filepath.Base(path)))
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", err
	}
	return dest, nil
}
