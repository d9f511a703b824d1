package service

import (
	"math"
	"sort"
	"time"

	"github.com/roomly/roombook-api/internal/models"
	"github.com/roomly/roombook-api/pkg/config"
	appErrors "github.com/roomly/roombook-api/pkg/errors"
)

// engineConfig carries the tunables of one scheduling run. Values come from
// configuration, never from package state, so tests can vary them freely.
type engineConfig struct {
	bufferMinutes         int
	searchStepMinutes     int
	searchHorizonMinutes  int
	maxAlternatives       int
	alternativesScanLimit int
}

func engineConfigFrom(cfg config.SchedulerConfig) engineConfig {
	return engineConfig{
		bufferMinutes:         cfg.BufferMinutes,
		searchStepMinutes:     cfg.SearchStepMinutes,
		searchHorizonMinutes:  cfg.SearchHorizonMinutes,
		maxAlternatives:       cfg.MaxAlternatives,
		alternativesScanLimit: cfg.AlternativesScanLimit,
	}
}

func (c engineConfig) withDefaults() engineConfig {
	if c.bufferMinutes <= 0 {
		c.bufferMinutes = 15
	}
	if c.searchStepMinutes <= 0 {
		c.searchStepMinutes = 5
	}
	if c.searchHorizonMinutes <= 0 {
		c.searchHorizonMinutes = 120
	}
	if c.maxAlternatives <= 0 {
		c.maxAlternatives = 5
	}
	if c.alternativesScanLimit <= 0 {
		c.alternativesScanLimit = 30
	}
	return c
}

// findOptimalMeeting runs the full allocation pipeline: candidate start times
// around the preferred instant, capacity/equipment filtering, buffer-aware
// conflict checks, scoring, alternative selection and cost estimation. It is
// a pure function of its inputs; identical inputs yield identical output.
func findOptimalMeeting(req models.MeetingRequest, rooms []models.Room, bookings []models.Booking, cfg engineConfig) (models.Recommendation, error) {
	cfg = cfg.withDefaults()

	rec := models.Recommendation{
		Alternatives: []models.RoomOption{},
		Diagnostics:  models.Diagnostics{TopScores: []models.ScoreSample{}},
	}

	if req.DurationMinutes <= 0 {
		return rec, appErrors.Clone(appErrors.ErrInvalidInput, "duration must be a positive number of minutes")
	}
	if req.PreferredStart.IsZero() {
		return rec, appErrors.Clone(appErrors.ErrInvalidInput, "preferred start time is required")
	}
	if len(rooms) == 0 {
		return rec, appErrors.Clone(appErrors.ErrInvalidInput, "room inventory is empty")
	}
	if !req.Priority.Valid() {
		req.Priority = models.PriorityNormal
	}

	candidates := candidateStartTimes(req.PreferredStart, req.FlexibilityMinutes, cfg.searchStepMinutes, cfg.searchHorizonMinutes)
	index := indexBookingsByRoom(bookings)
	attendees := req.AttendeeCount()
	duration := req.Duration()

	var scored []models.Candidate
	preemptable := 0

	for _, start := range candidates {
		end := start.Add(duration)
		for _, room := range rooms {
			if room.Capacity < attendees {
				continue
			}
			if !room.HasEquipment(req.RequiredEquipment) {
				continue
			}

			conflicted, outranks := findConflict(start, end, req.Priority, index[room.ID], cfg.bufferMinutes)
			if conflicted {
				if outranks {
					preemptable++
				}
				continue
			}

			wasted := wastedCapacity(room, attendees)
			cpm := costPerMinute(room)
			shift := shiftMinutes(start, req.PreferredStart)

			scored = append(scored, models.Candidate{
				Room:           room,
				Start:          start,
				Score:          candidateScore(wasted, cpm, shift, priorityBonus(req)),
				ShiftMinutes:   shift,
				WastedCapacity: wasted,
				CostPerMinute:  cpm,
			})
		}
	}

	// Stable sort keeps the enumeration order as the tie-break, which is what
	// makes the in-flexibility-window candidates win over expansion ones at
	// equal score.
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score < scored[j].Score })

	rec.Diagnostics.ScoredCount = len(scored)
	rec.Diagnostics.PreemptableConflicts = preemptable
	for i := 0; i < len(scored) && i < 5; i++ {
		rec.Diagnostics.TopScores = append(rec.Diagnostics.TopScores, models.ScoreSample{
			RoomID: scored[i].Room.ID,
			Score:  scored[i].Score,
			Start:  scored[i].Start,
		})
	}

	if len(scored) == 0 {
		return rec, nil
	}

	best := scored[0]
	room := best.Room
	start := best.Start
	rec.Room = &room
	rec.Start = &start
	rec.Alternatives = selectAlternatives(scored, best, cfg.maxAlternatives, cfg.alternativesScanLimit)
	rec.CostOptimization = costOptimization(rooms, best.Room, req.DurationMinutes)

	return rec, nil
}

// candidateStartTimes enumerates start instants: offsets within the
// flexibility window in ascending order, then expansion pairs out to the
// horizon, each later offset immediately followed by its earlier twin. The
// ordering is load-bearing; downstream tie-breaks rely on it.
func candidateStartTimes(preferred time.Time, flexibilityMinutes, stepMinutes, horizonMinutes int) []time.Time {
	if flexibilityMinutes < 0 {
		flexibilityMinutes = 0
	}

	var out []time.Time
	for offset := -flexibilityMinutes; offset <= flexibilityMinutes; offset += stepMinutes {
		out = append(out, preferred.Add(time.Duration(offset)*time.Minute))
	}
	for offset := flexibilityMinutes + stepMinutes; offset <= flexibilityMinutes+horizonMinutes; offset += stepMinutes {
		out = append(out, preferred.Add(time.Duration(offset)*time.Minute))
		out = append(out, preferred.Add(-time.Duration(offset)*time.Minute))
	}
	return out
}

// indexBookingsByRoom builds a local, immutable lookup for one scheduling
// call. It is rebuilt from the snapshot every run; the engine never shares a
// cache across calls.
func indexBookingsByRoom(bookings []models.Booking) map[string][]models.Booking {
	index := make(map[string][]models.Booking, len(bookings))
	for _, b := range bookings {
		if b.RoomID == "" {
			continue
		}
		index[b.RoomID] = append(index[b.RoomID], b)
	}
	return index
}

// overlaps tests two half-open intervals [aStart, aEnd) and [bStart, bEnd).
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// findConflict tests a candidate window against a room's active bookings and
// stops at the first buffered overlap. The second result records whether the
// incoming request outranked the conflicting booking; it is diagnostic only —
// a higher-priority request still loses the slot, never preempts it.
func findConflict(start, end time.Time, incoming models.Priority, roomBookings []models.Booking, bufferMinutes int) (conflicted, outranks bool) {
	buffer := time.Duration(bufferMinutes) * time.Minute
	windowStart := start.Add(-buffer)
	windowEnd := end.Add(buffer)

	for _, b := range roomBookings {
		if !b.Active() {
			continue
		}
		bStart, bEnd := b.BufferedWindow(bufferMinutes)
		if overlaps(windowStart, windowEnd, bStart, bEnd) {
			return true, incoming.Value() > b.Priority.Value()
		}
	}
	return false, false
}

// Scoring sub-terms. Kept separate so the weighting can change without
// touching the surrounding algorithm.

func wastedCapacity(room models.Room, attendees int) int {
	return room.Capacity - attendees
}

func costPerMinute(room models.Room) float64 {
	return room.HourlyRate / 60
}

func shiftMinutes(start, preferred time.Time) float64 {
	shift := start.Sub(preferred)
	if shift < 0 {
		shift = -shift
	}
	return shift.Minutes()
}

// priorityBonus is a fixed nudge, not a hard override: a CEO or urgent
// request is favored but can still lose to a clearly better room/time.
func priorityBonus(req models.MeetingRequest) float64 {
	bonus := 0.0
	if req.OrganizerRole == models.RoleCEO {
		bonus -= 100
	}
	switch req.Priority {
	case models.PriorityUrgent:
		bonus -= 60
	case models.PriorityHigh:
		bonus -= 25
	}
	return bonus
}

func candidateScore(wasted int, costPerMin, shiftMin, bonus float64) float64 {
	return float64(wasted)*2 + costPerMin*10 + shiftMin*1.5 + bonus
}

// selectAlternatives scans the best-scored candidates for distinct
// (room, time) pairings, skipping the recommendation itself.
func selectAlternatives(scored []models.Candidate, best models.Candidate, maxAlternatives, scanLimit int) []models.RoomOption {
	alternatives := make([]models.RoomOption, 0, maxAlternatives)
	seen := make(map[string]struct{}, maxAlternatives+1)
	bestKey := candidateKey(best)

	limit := scanLimit
	if limit > len(scored) {
		limit = len(scored)
	}
	for i := 0; i < limit && len(alternatives) < maxAlternatives; i++ {
		c := scored[i]
		key := candidateKey(c)
		if key == bestKey {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		alternatives = append(alternatives, models.RoomOption{Room: c.Room, Time: c.Start})
	}
	return alternatives
}

func candidateKey(c models.Candidate) string {
	return c.Room.ID + "|" + c.Start.UTC().Format(time.RFC3339Nano)
}

// costOptimization estimates the saving versus booking the largest room in
// the full inventory for the same duration. Ties go to the first room
// encountered.
func costOptimization(rooms []models.Room, recommended models.Room, durationMinutes int) float64 {
	if len(rooms) == 0 {
		return 0
	}
	largest := rooms[0]
	for _, r := range rooms[1:] {
		if r.Capacity > largest.Capacity {
			largest = r
		}
	}
	duration := float64(durationMinutes)
	saving := largest.HourlyRate/60*duration - recommended.HourlyRate/60*duration
	return math.Round(saving*100) / 100
}
