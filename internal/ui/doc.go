// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides the mix selection workflow:
//  1. [MixListView] : Browse the resolved catalog, toggling mixes with space
//  2. [ConfirmView] : Review the selection before saving
//  3. [DoneView] : Confirmation or error
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// On first run (no stored selection) every daily mix starts pre-selected; afterwards
// the stored selection seeds the checkboxes.
//
// Keyboard navigation uses vim-style bindings (j/k, space, a/n, enter, q) with
// contextual help displayed via charmbracelet/bubbles/help.
package ui
