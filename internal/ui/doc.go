// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The screen is a persistent status indicator with a stack of modals over it:
//  1. [ModalDownloads] : the job collection, with fuzzy filter, multi-select and pause/resume
//  2. [ModalDetail] : progress and logs of one job
//  3. [ModalExternal] : form starting a download from an external URL
//  4. [ModalScheduler] : read-only scheduler status
//
// Three polls run as [tasks.Loop]s driven by tea.Tick messages: the indicator
// (always), the collection (while downloads is open) and the detail (while
// detail is open, stopping on a terminal status). Each modal owns a [Session]
// that is torn down when it closes. Escape closes the whole [ModalStack].
//
// Keyboard navigation uses vim-style bindings with contextual help displayed via charmbracelet/bubbles/help.
package ui
