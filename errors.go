package main

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

// Rule violations surfaced by the session state machine. Handlers report
// these to the offending client only; they are never fatal.
var (
	ErrNotHost       = errors.New("only the host may do that")
	ErrRoundNotOver  = errors.New("the round is still in progress")
	ErrRoundOver     = errors.New("the round is already over")
	ErrQuotaReached  = errors.New("you have already submitted all your questions")
	ErrEmptyQuestion = errors.New("both a question and an answer are required")
	ErrPinSpaceFull  = errors.New("no free pins available")
	ErrGameNotFound  = errors.New("session not found")
)

func logf(cfg *Config, format string, args ...any) {
	if !cfg.verbose {
		return
	}

	log.Printf("%s | "+format, append([]any{time.Now().Format(logDate)}, args...)...)
}

func newPage(title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(getFavicon())
	htmlBody.WriteString(`<style>`)
	htmlBody.WriteString(`html,body,a{display:block;height:100%;width:100%;text-decoration:none;color:inherit;cursor:auto;}</style>`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", title))
	htmlBody.WriteString(fmt.Sprintf("<body><a href=\"/\">%s</a></body></html>", body))

	return htmlBody.String()
}
