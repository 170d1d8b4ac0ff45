package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/clubemanager/backend/core"
	"github.com/clubemanager/backend/core/billing"
	"github.com/clubemanager/backend/core/member"
	"github.com/clubemanager/backend/core/user"
	inmemdb "github.com/clubemanager/backend/storage/database/inmem"
	testutil "github.com/clubemanager/backend/tests"
)

var (
	usrRepo     user.Repository
	mbrRepo     member.Repository
	billingRepo billing.Repository
)

func setup(t *testing.T) *commandLine {
	t.Helper()

	db := inmemdb.NewDB()
	usrRepo = inmemdb.NewUserRepository(db)
	mbrRepo = inmemdb.NewMemberRepository(db)
	billingRepo = inmemdb.NewBillingRepository(db)

	conf := &core.Config{AppName: "ClubeManager", TestMode: true}
	return &commandLine{
		usrRepo:    usrRepo,
		billingSvc: billing.NewService(nil, billingRepo, mbrRepo, conf),
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "outreach_log", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}
}

func Test_commandLine_addOperator(t *testing.T) {
	cli := setup(t)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"addoperator"}, wantErr: errHelp},
		{name: "no email", args: []string{"addoperator", "-username", "dany"}, wantErr: errHelp},
		{name: "no password", args: []string{"addoperator", "-username", "dany", "-email", "dany@test.br"}, wantErr: errHelp},
		{name: "unknown tier", args: []string{"addoperator", "-username", "dany", "-email", "dany@test.br", "-tier", "boss"},
			extra: extra{pwd: "s3cr3t"}, wantErrStr: "unknown tier \"boss\""},
		{name: "create with default tier", args: []string{"addoperator", "-username", "dany", "-email", "dany@test.br"},
			extra: extra{pwd: "s3cr3t"}},
		{name: "promote existing operator", args: []string{"addoperator", "-username", "dany", "-email", "dany@test.br", "-tier", user.TierFinance},
			extra: extra{pwd: "s3cr3t"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				usr, err := usrRepo.GetUser(context.Background(), user.GetFilter{UsernameOrEmail: []string{"dany"}})
				if err != nil {
					t.Fatalf("GetUser() failed, %v", err)
				}
				if !usr.Active() {
					t.Error("operator should be active")
				}
				if err := usr.CheckPassword("s3cr3t"); err != nil {
					t.Errorf("CheckPassword() failed, %v", err)
				}
			} else if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
			} else if err.Error() != tt.wantErrStr {
				t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
			}
		})
	}

	t.Run("tier sticks", func(t *testing.T) {
		usr, err := usrRepo.GetUser(context.Background(), user.GetFilter{UsernameOrEmail: []string{"dany"}})
		if err != nil {
			t.Fatalf("GetUser() failed, %v", err)
		}
		if usr.Tier != user.TierFinance {
			t.Errorf("Tier = %s, want %s", usr.Tier, user.TierFinance)
		}
	})
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "Operator", "awe", "awe@test.br", "mdr", user.TierFrontDesk, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, extra: extra{pwd: "lol"}},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshedUsr, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
				if err != nil {
					t.Fatalf("GetUser() failed, %v", err)
				}
				if bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash) {
					t.Error("failed to update new password")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_generateDues(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	if _, err := billingRepo.UpdatePolicy(ctx, testutil.DefaultPolicy()); err != nil {
		t.Fatalf("seeding policy failed: %v", err)
	}
	testutil.CreateMember(t, mbrRepo, "Ana", "ana@test.br", member.CategoryPrimary, member.StatusActive, "")
	testutil.CreateMember(t, mbrRepo, "Bruno", "bruno@test.br", member.CategoryPrimary, member.StatusActive, "")
	testutil.CreateMember(t, mbrRepo, "Carla", "carla@test.br", member.CategoryPrimary, member.StatusInactive, "")

	tests := []cliTest{
		{name: "no period", args: []string{"gendues"}, wantErr: errHelp},
		{name: "malformed period", args: []string{"gendues", "-period", "02/2024"}, wantErrStr: "invalid period \"02/2024\": want YYYY-MM"},
		{name: "unknown scope", args: []string{"gendues", "-period", "2024-02", "-scope", "everyone"}, wantErrStr: "unknown scope \"everyone\""},
		{name: "active only", args: []string{"gendues", "-period", "2024-02", "-scope", billing.ScopeActiveOnly}},
		{name: "rerun is a no-op", args: []string{"gendues", "-period", "2024-02", "-scope", billing.ScopeActiveOnly}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if err.Error() != tt.wantErrStr {
					t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
				}
			}
		})
	}

	dues, err := billingRepo.QueryDues(ctx, &billing.QueryFilter{Period: "2024-02"}, nil)
	if err != nil {
		t.Fatalf("QueryDues() failed: %v", err)
	}
	if len(dues) != 2 {
		t.Errorf("len(dues) = %d, want 2", len(dues))
	}
}

func Test_commandLine_scanOverdue(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	if _, err := billingRepo.UpdatePolicy(ctx, testutil.DefaultPolicy()); err != nil {
		t.Fatalf("seeding policy failed: %v", err)
	}
	ana := testutil.CreateMember(t, mbrRepo, "Ana", "ana@test.br", member.CategoryPrimary, member.StatusActive, "")
	due := testutil.CreateDue(t, billingRepo, ana, billing.NewPeriod(2024, time.February),
		testutil.DefaultPolicy().Prices[member.CategoryPrimary], billing.StatusPending,
		time.Date(2024, time.February, 5, 0, 0, 0, 0, time.UTC))

	tests := []cliTest{
		{name: "malformed date", args: []string{"scanoverdue", "-asof", "lol"}, wantErrStr: "invalid -asof date \"lol\": expected YYYY-MM-DD"},
		{name: "before the due date", args: []string{"scanoverdue", "-asof", "2024-02-01"}},
		{name: "past the due date", args: []string{"scanoverdue", "-asof", "2024-03-01"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if err.Error() != tt.wantErrStr {
					t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
				}
			}
		})
	}

	refreshed, err := billingRepo.GetDueByID(ctx, due.ID)
	if err != nil {
		t.Fatalf("GetDueByID() failed: %v", err)
	}
	if refreshed.Status != billing.StatusOverdue {
		t.Errorf("Status = %s, want %s", refreshed.Status, billing.StatusOverdue)
	}
}
