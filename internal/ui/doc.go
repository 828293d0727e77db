// Package ui implements the terminal weather dashboard on bubbletea's Elm architecture.
//
// The screen has two focus areas:
//  1. the search box, where keystrokes feed a debounced [search.Session] and
//     suggestions appear as they settle; enter adds the highlighted city
//  2. the widget board, where each tracked city is a card themed by its
//     current condition, with refresh, delete, forecast-days and
//     hourly/daily controls
//
// Search results arrive on the session's update channel and are turned into
// messages by a re-armed command, so rendering never blocks on the network.
package ui
