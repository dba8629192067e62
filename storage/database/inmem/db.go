// Package inmemdb implements the repositories on maps guarded by mutexes.
// It backs the tests and the DEV server when no database is configured.
package inmemdb

import (
	"github.com/trezcool/masomo-lms/core/attendance"
	"github.com/trezcool/masomo-lms/core/batch"
	"github.com/trezcool/masomo-lms/core/placement"
	"github.com/trezcool/masomo-lms/core/quiz"
	"github.com/trezcool/masomo-lms/core/user"
)

const timestampLayout = "2006-01-02T15:04:05.000000000"

type DB struct {
	user       *userTable
	batch      *batchTables
	attendance *attendanceTables
	grading    *gradingTable
	placement  *placementTables
	quiz       *quizTable
	site       *siteTable
}

func Open() *DB {
	return &DB{
		user: &userTable{table: make(map[string]*user.User)},
		batch: &batchTables{
			batches:     make(map[string]*batch.Batch),
			instructors: make(map[batch.CourseInstructor]bool),
			enrollments: make(map[string]*batch.Enrollment),
		},
		attendance: &attendanceTables{
			sessions: make(map[string]*attendance.Session),
			records:  make(map[string]*attendance.Record),
			sheets:   make(map[string]*attendance.Sheet),
			entries:  make(map[string]*attendance.Entry),
		},
		grading: newGradingTable(),
		placement: &placementTables{
			questions:   make(map[string]*placement.Question),
			tests:       make(map[string]*placement.Test),
			submissions: make(map[string]*placement.Submission),
		},
		quiz: &quizTable{table: make(map[string]*quiz.Quiz)},
		site: &siteTable{},
	}
}
