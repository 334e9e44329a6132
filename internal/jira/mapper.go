package jira

import (
	"slices"
	"strings"
	"time"

	"mcs-forecast/internal/history"
)

// DefaultDoneStatuses and DefaultStartStatuses are the workflow names used
// when no explicit mapping is configured.
var (
	DefaultDoneStatuses  = []string{"Done", "Closed"}
	DefaultStartStatuses = []string{"In Progress"}
)

// MapIssue transforms a Jira DTO into a domain Issue.
func MapIssue(item IssueDTO, storyPointsField string) Issue {
	issue := Issue{
		Key:       item.Key,
		IssueType: item.Fields.IssueType.Name,
		Summary:   item.Fields.Summary,
		Status:    item.Fields.Status.Name,
	}

	if storyPointsField != "" {
		issue.StoryPoints = item.Fields.Number(storyPointsField)
	}

	if t, err := ParseTime(item.Fields.Created); err == nil {
		issue.Created = t
	}

	if item.Fields.ResolutionDate != "" {
		if t, err := ParseTime(item.Fields.ResolutionDate); err == nil {
			issue.ResolutionDate = &t
		}
	}

	if item.Changelog != nil {
		issue.Transitions = ProcessChangelog(item.Changelog)
	}

	return issue
}

// ProcessChangelog extracts status transitions in chronological order.
// Histories with unparseable dates are skipped.
func ProcessChangelog(changelog *ChangelogDTO) []StatusTransition {
	var transitions []StatusTransition
	for _, h := range changelog.Histories {
		hDate, err := ParseTime(h.Created)
		if err != nil {
			continue
		}
		for _, item := range h.Items {
			if item.Field != "status" {
				continue
			}
			transitions = append(transitions, StatusTransition{
				FromStatus: item.FromString,
				ToStatus:   item.ToString,
				Date:       hDate,
			})
		}
	}

	slices.SortStableFunc(transitions, func(a, b StatusTransition) int {
		return a.Date.Compare(b.Date)
	})
	return transitions
}

// CycleDates returns when work on the issue started and when it was finished.
// Start is the first move into a start status, done the last move into a done
// status. ok is false unless both exist and done is not before start.
func (i Issue) CycleDates(startStatuses, doneStatuses []string) (start, done time.Time, ok bool) {
	if len(startStatuses) == 0 {
		startStatuses = DefaultStartStatuses
	}
	if len(doneStatuses) == 0 {
		doneStatuses = DefaultDoneStatuses
	}

	var foundStart, foundDone bool
	for _, t := range i.Transitions {
		if !foundStart && containsFold(startStatuses, t.ToStatus) {
			start, foundStart = t.Date, true
		}
		if containsFold(doneStatuses, t.ToStatus) {
			done, foundDone = t.Date, true
		}
	}

	if !foundStart || !foundDone || done.Before(start) {
		return time.Time{}, time.Time{}, false
	}
	return start, done, true
}

func containsFold(list []string, s string) bool {
	return slices.ContainsFunc(list, func(v string) bool {
		return strings.EqualFold(v, s)
	})
}

// MapCompletedItem maps an issue with its changelog to a completed item.
// ok is false when the issue never went through a start and a done status.
func MapCompletedItem(item IssueDTO, storyPointsField string) (history.CompletedItem, bool) {
	issue := MapIssue(item, storyPointsField)
	start, done, ok := issue.CycleDates(nil, nil)
	if !ok {
		return history.CompletedItem{}, false
	}
	return history.NewCompletedItem(issue.Key, issue.IssueType, issue.Summary, issue.StoryPoints, start, done), true
}
