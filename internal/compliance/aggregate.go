// Package compliance computes compliance figures from lifecycle snapshots.
// Everything here is a pure function over caller-supplied rows: no store, no
// clock of its own, no caching. Staleness policy belongs to the caller.
package compliance

import (
	"math"
	"time"

	assignment "certrail/internal/assignment/models"
	"certrail/internal/catalog"
	certification "certrail/internal/certification/models"
	training "certrail/internal/training/models"
)

// TrainingCounts partitions a subject's training assignments. Expired is
// counted separately from Completed: a lapsed certificate no longer counts
// as compliant.
type TrainingCounts struct {
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Expired    int `json:"expired"`
}

// HabilitationSummary partitions a candidate's certification runs.
type HabilitationSummary struct {
	Active   int `json:"active"`
	Expired  int `json:"expired"`
	Failed   int `json:"failed"`
	InFlight int `json:"in_flight"`
}

// TrainingAssignments restricts an assignment snapshot to training-kind
// content. Compliance is measured over trainings only: alerts, documents and
// procedures carry no completion obligation. Assignments whose item has left
// the catalog are dropped with them.
func TrainingAssignments(list []*assignment.Assignment, reg *catalog.Registry) []*assignment.Assignment {
	var out []*assignment.Assignment
	for _, a := range list {
		item, err := reg.ContentItem(a.ContentID)
		if err != nil {
			continue
		}
		if item.IsTraining() {
			out = append(out, a)
		}
	}
	return out
}

// SubjectRate is the subject's training completion percentage, rounded to
// the nearest integer. The caller supplies the training-kind assignments;
// see TrainingAssignments. A subject with no trainings assigned is fully
// compliant.
func SubjectRate(trainings []*assignment.Assignment) int {
	if len(trainings) == 0 {
		return 100
	}
	completed := 0
	for _, a := range trainings {
		if a.Status == assignment.StatusCompleted {
			completed++
		}
	}
	return int(math.Round(float64(completed) / float64(len(trainings)) * 100))
}

// PopulationRate is the unweighted mean of per-subject rates, rounded. An
// empty population is fully compliant.
func PopulationRate(rates []int) int {
	if len(rates) == 0 {
		return 100
	}
	sum := 0
	for _, r := range rates {
		sum += r
	}
	return int(math.Round(float64(sum) / float64(len(rates))))
}

// CountTrainings partitions training assignments by effective state at now.
// Counting assignments rather than progress rows keeps never-opened
// trainings visible: they have been assigned, so they are pending.
func CountTrainings(trainings []*assignment.Assignment, now time.Time) TrainingCounts {
	var counts TrainingCounts
	for _, a := range trainings {
		switch a.EffectiveStatus(now) {
		case assignment.StatusInProgress:
			counts.InProgress++
		case assignment.StatusCompleted:
			counts.Completed++
		case assignment.StatusExpired:
			counts.Expired++
		default:
			// sent, received, read, acknowledged: delivered but not begun.
			counts.Pending++
		}
	}
	return counts
}

// ExpiringCertificates filters the records whose certificate lapses within
// windowDays of now.
func ExpiringCertificates(list []*training.Progress, now time.Time, windowDays int) []*training.Progress {
	var out []*training.Progress
	for _, p := range list {
		if p.ExpiringSoon(now, windowDays) {
			out = append(out, p)
		}
	}
	return out
}

// SummarizeHabilitations partitions certification runs by effective state
// at now. Runs still travelling the pipeline count as in flight.
func SummarizeHabilitations(list []*certification.PathProgress, now time.Time) HabilitationSummary {
	var summary HabilitationSummary
	for _, p := range list {
		switch p.EffectiveStatus(now) {
		case certification.StatusHabilitationActive:
			summary.Active++
		case certification.StatusHabilitationExpired:
			summary.Expired++
		case certification.StatusEvaluationFailed:
			summary.Failed++
		default:
			summary.InFlight++
		}
	}
	return summary
}
