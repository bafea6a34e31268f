/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Seednode/weathrguessr/game"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

const qrSize = 320

// shareText summarizes a game for pasting into chats and social posts.
func shareText(stats game.Stats, publicURL string) string {
	var b strings.Builder

	b.WriteString("🌍 WeathrGuessr Results 🌍\n\n")
	b.WriteString("📊 Completed Rounds: " + strconv.Itoa(stats.Completed()) + "\n")
	b.WriteString("✅ Correct Answers: " + strconv.Itoa(stats.Correct) + "\n")
	b.WriteString("🎯 Accuracy: " + strconv.Itoa(stats.Accuracy()) + "%\n")
	b.WriteString("🔥 Current Streak: " + strconv.Itoa(stats.Streak) + "\n\n")
	b.WriteString("Think you can beat my score? Play at " + publicURL)

	return b.String()
}

// serveShareQR renders the public game URL as a PNG QR code.
func serveShareQR(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		png, err := qrcode.Encode(cfg.publicURL, qrcode.Medium, qrSize)
		if err != nil {
			errs <- err

			http.Error(w, "qr generation failed", http.StatusInternalServerError)

			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Content-Length", strconv.Itoa(len(png)))
		securityHeaders(cfg, w)

		written, err := w.Write(png)
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Share QR code (%s) to %s in %s",
			humanReadableSize(written),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}
