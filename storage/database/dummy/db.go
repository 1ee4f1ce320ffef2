// Package dummydb implements the domain repositories in memory, for tests and local runs.
package dummydb

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core/attendance"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/homework"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/lesson"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/material"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/notification"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/payment"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/student"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/substitution"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/user"
)

type (
	DB struct {
		user         *table[user.User]
		student      *table[student.Student]
		class        *table[student.Class]
		payment      *table[payment.Record]
		homework     *table[homework.Homework]
		submission   *table[homework.Submission]
		attendance   *table[attendance.Record]
		lesson       *table[lesson.Lesson]
		material     *table[material.Material]
		substitution *table[substitution.Substitution]
		notification *table[notification.Notification]
	}

	table[T any] struct {
		sync.RWMutex
		rows map[string]T
	}
)

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[string]T)}
}

// all returns a copy of every row matching keep, sorted with less. The caller must hold the lock.
func (t *table[T]) all(keep func(T) bool, less func(a, b T) bool) []T {
	res := make([]T, 0, len(t.rows))
	for _, row := range t.rows {
		if keep == nil || keep(row) {
			res = append(res, row)
		}
	}
	if less != nil {
		sort.SliceStable(res, func(i, j int) bool { return less(res[i], res[j]) })
	}
	return res
}

func Open() (*DB, error) {
	db := &DB{
		user:         newTable[user.User](),
		student:      newTable[student.Student](),
		class:        newTable[student.Class](),
		payment:      newTable[payment.Record](),
		homework:     newTable[homework.Homework](),
		submission:   newTable[homework.Submission](),
		attendance:   newTable[attendance.Record](),
		lesson:       newTable[lesson.Lesson](),
		material:     newTable[material.Material](),
		substitution: newTable[substitution.Substitution](),
		notification: newTable[notification.Notification](),
	}
	return db, nil
}

func newID() string {
	return uuid.New().String()
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// inRange reports whether the day of t is within from and to. Zero bounds are open.
func inRange(t, from, to time.Time) bool {
	d := dateOnly(t)
	if !from.IsZero() && d.Before(dateOnly(from)) {
		return false
	}
	if !to.IsZero() && d.After(dateOnly(to)) {
		return false
	}
	return true
}

// deleteClassContent deletes the rows owned by a deleted class.
func (db *DB) deleteClassContent(classID string) {
	var hwIDs = make(map[string]bool)
	db.homework.Lock()
	for id, hw := range db.homework.rows {
		if hw.ClassID == classID {
			hwIDs[id] = true
			delete(db.homework.rows, id)
		}
	}
	db.homework.Unlock()

	deleteWhere(db.submission, func(sub homework.Submission) bool { return hwIDs[sub.HomeworkID] })
	deleteWhere(db.lesson, func(l lesson.Lesson) bool { return l.ClassID == classID })
	deleteWhere(db.material, func(m material.Material) bool { return m.ClassID == classID })
	deleteWhere(db.substitution, func(s substitution.Substitution) bool { return s.ClassID == classID })

	db.attendance.Lock()
	for id, rec := range db.attendance.rows {
		if rec.ClassID == classID {
			rec.ClassID = ""
			db.attendance.rows[id] = rec
		}
	}
	db.attendance.Unlock()
}
