package models

import "strings"

// Thread is the category a post is filed under.
type Thread string

const (
	ThreadGeneral     Thread = "General"
	ThreadLectures    Thread = "Lectures"
	ThreadSections    Thread = "Sections"
	ThreadProblemSets Thread = "Problem Sets"
	ThreadAssignments Thread = "Assignments"
	ThreadSocial      Thread = "Social"
)

// AllThreads is the listing filter that matches every thread.
const AllThreads = "All Threads"

// Threads lists the categories in display order.
func Threads() []Thread {
	return []Thread{ThreadGeneral, ThreadLectures, ThreadSections, ThreadProblemSets, ThreadAssignments, ThreadSocial}
}

// ParseThread resolves a category name case-insensitively.
func ParseThread(value string) (Thread, bool) {
	value = strings.TrimSpace(value)
	for _, t := range Threads() {
		if strings.EqualFold(value, string(t)) {
			return t, true
		}
	}
	return "", false
}

// IsAllThreads reports whether a listing filter selects every thread.
func IsAllThreads(filter string) bool {
	filter = strings.TrimSpace(filter)
	return filter == "" || strings.EqualFold(filter, AllThreads)
}

// Valid reports whether t is exactly one of the known categories.
func (t Thread) Valid() bool {
	for _, candidate := range Threads() {
		if t == candidate {
			return true
		}
	}
	return false
}

func (t Thread) String() string { return string(t) }
