package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkFirstDetection BookmarkType = "first_detection"
	BookmarkEscape         BookmarkType = "escape"
	BookmarkCloseCall      BookmarkType = "close_call"
	BookmarkPressureSpike  BookmarkType = "pressure_spike"
	BookmarkStealthStreak  BookmarkType = "stealth_streak"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type" json:"type"`
	Tick        int32        `csv:"tick" json:"tick"`
	Description string       `csv:"description" json:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// stealthStreakWindows is the number of quiet windows that make a streak.
const stealthStreakWindows = 5

// BookmarkDetector detects interesting moments in a run.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	// Per-tick state
	everDetected   bool
	detected       bool
	detectedSince  int32
	closeCallArmed bool

	quietWindows int // consecutive windows moving without being detected
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 3 {
		historySize = 3 // minimum for a rolling average
	}
	return &BookmarkDetector{
		history:        make([]WindowStats, historySize),
		historySize:    historySize,
		closeCallArmed: true,
	}
}

// Observe checks per-tick moments. nearest is the distance from the player to
// the closest agent (negative when unknown); closeCall is the distance under
// which an undetected approach counts as a close call.
func (bd *BookmarkDetector) Observe(tick int32, anyDetected bool, nearest, closeCall float64) []Bookmark {
	var bookmarks []Bookmark

	switch {
	case anyDetected && !bd.detected:
		bd.detected = true
		bd.detectedSince = tick
		if !bd.everDetected {
			bd.everDetected = true
			bookmarks = append(bookmarks, Bookmark{
				Type:        BookmarkFirstDetection,
				Tick:        tick,
				Description: fmt.Sprintf("Player first detected at distance %.1f", nearest),
			})
		}
	case !anyDetected && bd.detected:
		bd.detected = false
		bookmarks = append(bookmarks, Bookmark{
			Type:        BookmarkEscape,
			Tick:        tick,
			Description: fmt.Sprintf("Player escaped after %d ticks detected", tick-bd.detectedSince),
		})
	}

	if b := bd.checkCloseCall(tick, anyDetected, nearest, closeCall); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	return bookmarks
}

func (bd *BookmarkDetector) checkCloseCall(tick int32, anyDetected bool, nearest, closeCall float64) *Bookmark {
	if nearest < 0 || closeCall <= 0 {
		return nil
	}
	// Re-arm once the player has backed well away
	if nearest > 2*closeCall {
		bd.closeCallArmed = true
		return nil
	}
	if anyDetected || !bd.closeCallArmed || nearest > closeCall {
		return nil
	}

	bd.closeCallArmed = false
	return &Bookmark{
		Type:        BookmarkCloseCall,
		Tick:        tick,
		Description: fmt.Sprintf("Player passed %.2f from an agent undetected", nearest),
	}
}

// Check analyzes the latest window stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	if bd.historyFull || bd.historyIdx > 0 {
		// Pressure spike: detections > 2x rolling average
		if b := bd.checkPressureSpike(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	// Stealth streak: moving for several windows without a detection
	if b := bd.checkStealthStreak(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	// Update history
	bd.addToHistory(stats)

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []WindowStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

func (bd *BookmarkDetector) checkPressureSpike(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var total int
	for _, h := range history {
		total += h.Detections
	}
	avg := float64(total) / float64(len(history))

	if stats.Detections < 3 || float64(stats.Detections) <= avg*2.0 {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkPressureSpike,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("%d detections vs rolling average %.2f", stats.Detections, avg),
	}
}

func (bd *BookmarkDetector) checkStealthStreak(stats WindowStats) *Bookmark {
	if stats.Detections > 0 || stats.DetectedPct > 0 || stats.Footsteps == 0 {
		bd.quietWindows = 0
		return nil
	}

	bd.quietWindows++
	if bd.quietWindows == stealthStreakWindows { // trigger exactly once per streak
		return &Bookmark{
			Type:        BookmarkStealthStreak,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Player moved undetected for %d windows", stealthStreakWindows),
		}
	}

	return nil
}
