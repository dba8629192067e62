package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/placement"
	"github.com/trezcool/masomo-lms/core/user"
	emailsvc "github.com/trezcool/masomo-lms/services/email"
	logsvc "github.com/trezcool/masomo-lms/services/logger"
	"github.com/trezcool/masomo-lms/storage/cache"
	inmemdb "github.com/trezcool/masomo-lms/storage/database/inmem"
	"github.com/trezcool/masomo-lms/tests"
)

var (
	usrRepo   user.Repository
	placeRepo placement.Repository
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	// set up DB & repos
	db := inmemdb.Open()
	usrRepo = inmemdb.NewUserRepository(db)
	placeRepo = inmemdb.NewPlacementRepository(db)

	svc, err := placement.NewService(placeRepo, &cache.Nop{}, emailsvc.NewConsoleServiceMock(), logsvc.NewNop())
	require.NoError(t, err)

	// start CLI
	out := new(bytes.Buffer)
	return &commandLine{
		db:           new(sql.DB),
		usrRepo:      usrRepo,
		placementSvc: svc,
		out:          out,
	}, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func (tt cliTest) check(t *testing.T, err error) {
	switch {
	case err == nil:
		if tt.wantErr != nil || tt.wantErrStr != "" {
			t.Errorf("cli.run() error = nil, wantErr %v %s", tt.wantErr, tt.wantErrStr)
		}
	case tt.wantErr != nil:
		if err != tt.wantErr {
			t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
		}
	case tt.wantErrStr != "":
		if !strings.Contains(err.Error(), tt.wantErrStr) {
			t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
		}
	default:
		t.Errorf("cli.run() unexpected error = %v", err)
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	var ran []string
	gooseRunFunc = func(_ context.Context, db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		ran = append(ran, strings.TrimSpace(command+" "+strings.Join(args, " ")))
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErrStr: "requires at least 1 arg(s)"},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(context.Background(), tt.args))
		})
	}
	assert.Equal(t, []string{"up", "up-by-one", "up-to 2", "down", "down-to 1", "redo", "reset", "status", "version", "fix"}, ran)

	t.Run("in-memory storage", func(t *testing.T) {
		cli.db = nil
		tt := cliTest{wantErr: errNoDatabase}
		tt.check(t, cli.run(context.Background(), []string{"migrate", "up"}))
	})
}

func mockPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		return []byte(pwd), nil
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, _ := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "User", "awe", "awe@test.cd", "mdr", nil, true)

	tests := []cliTest{
		{name: "no command", wantErr: nil},
		{name: "unknown command", args: []string{"lol"}, wantErrStr: "unknown command \"lol\""},
		{name: "no username", args: []string{"resetpassword"}, wantErrStr: "required flag(s) \"username\" not set"},
		{name: "username but no password", args: []string{"resetpassword", "--username", "awe"}, wantErr: errEmptyPassword},
		{name: "user not found", args: []string{"resetpassword", "--username", "lol"}, extra: "lol", wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "--username", usr.Username}, extra: "lol"},
		{name: "reset with email", args: []string{"resetpassword", "--username", "AWE@test.cd"}, extra: "lmao"},
	}
	for _, tt := range tests {
		pwd, _ := tt.extra.(string)
		mockPassword(pwd)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(context.Background(), tt.args)
			tt.check(t, err)
			if err != nil || pwd == "" {
				return
			}
			refreshedUsr, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
			if err != nil {
				t.Fatalf("GetUser() failed, %v", err)
			}
			if refreshedUsr.CheckPassword(pwd) != nil {
				t.Error("failed to update new password")
			}
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli, out := setup(t)
	ctx := context.Background()

	mockPassword("S3cure!pass")
	err := cli.run(ctx, []string{"adduser", "--name", "Root", "--username", "Root", "--email", "root@lms.test", "--admin"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "user root (")

	usr, err := usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: "root@lms.test"})
	require.NoError(t, err)
	assert.Equal(t, "Root", usr.Name)
	assert.True(t, usr.IsActive)
	assert.True(t, usr.IsAdmin())
	assert.NoError(t, usr.CheckPassword("S3cure!pass"))

	// same email updates the existing user
	mockPassword("An0ther!pass")
	require.NoError(t, cli.run(ctx, []string{"adduser", "--username", "root", "--email", "root@lms.test"}))
	users, err := usrRepo.QueryUsers(ctx, nil, nil)
	require.NoError(t, err)
	if assert.Len(t, users, 1) {
		assert.Equal(t, usr.ID, users[0].ID)
		assert.NoError(t, users[0].CheckPassword("An0ther!pass"))
		assert.Equal(t, "Root", users[0].Name)
	}

	mockPassword("")
	tt := cliTest{wantErr: errEmptyPassword}
	tt.check(t, cli.run(ctx, []string{"adduser", "--username", "ben", "--email", "ben@lms.test"}))
}

const testsYAML = `
tests:
  - name: pt-english
    test_title: English Placement
    time_limit: 20
    passing_score: 60
    questions:
      - question: 2 + 2 = ?
        options:
          - option_text: "4"
            is_correct: true
          - option_text: "5"
      - question: Pick the verb
        question_type: Multiple Answer
        options:
          - option_text: run
            is_correct: true
          - option_text: blue
          - option_text: eat
            is_correct: true
`

func Test_commandLine_importTests(t *testing.T) {
	cli, out := setup(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "tests.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testsYAML), 0o600))

	tests := []cliTest{
		{name: "no file", args: []string{"import-tests"}, wantErrStr: "accepts 1 arg(s)"},
		{name: "missing file", args: []string{"import-tests", filepath.Join(t.TempDir(), "nope.yaml")}, wantErrStr: "no such file"},
		{name: "import", args: []string{"import-tests", path}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(ctx, tt.args))
		})
	}
	assert.Contains(t, out.String(), "tests: 1 created, 0 updated; questions: 2 created, 0 reused")

	pt, err := placeRepo.GetTest(ctx, "pt-english")
	require.NoError(t, err)
	assert.Len(t, pt.Questions, 2)
	assert.True(t, pt.IsActive)

	out.Reset()
	require.NoError(t, cli.run(ctx, []string{"import-tests", path}))
	assert.Contains(t, out.String(), "tests: 0 created, 1 updated; questions: 0 created, 2 reused")
}

func Test_commandLine_expireSubmissions(t *testing.T) {
	cli, out := setup(t)
	ctx := context.Background()

	q := testutil.CreateQuestion(t, placeRepo, "2 + 2 = ?", placement.SingleAnswer, []string{"4", "5"}, 0)
	pt := testutil.CreateTest(t, placeRepo, "pt-001", 10, 50, q)

	started := time.Now().Add(-time.Hour)
	for _, at := range []time.Time{started, time.Now()} {
		s := placement.Submission{Test: pt.Name, FullName: "Amy", Email: "amy@lms.test", DateOfBirth: core.MustParseDate("2001-02-03")}
		s.BeforeInsert(pt, at)
		_, err := placeRepo.CreateSubmission(ctx, s)
		require.NoError(t, err)
	}

	require.NoError(t, cli.run(ctx, []string{"expire-submissions"}))
	assert.Equal(t, "1 submission(s) expired\n", out.String())
}
