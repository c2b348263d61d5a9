// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

// Package termmd renders markdown as ANSI-styled terminal text. It
// exists for the CLI's embedded reference documentation: the same
// source files read well on a code host and in a terminal pager.
//
// Soft line breaks inside paragraphs become spaces, so hard-wrapped
// source reflows cleanly at any terminal width. Fenced code blocks
// are syntax-highlighted and never reflowed. Output always carries
// ANSI escapes (the color profile is forced, not detected); callers
// that may be piped should check the terminal themselves and fall
// back to the raw source.
//
// The dialect is GFM. Elements reference docs do not use — images,
// task lists, definition lists, embedded HTML blocks — render as
// nothing rather than as errors.
package termmd
