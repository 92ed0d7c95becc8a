package main

import (
	newsdesk "github.com/bushradio/newsdesk"
	"github.com/bushradio/newsdesk/internal/di"
	"github.com/bushradio/newsdesk/internal/domain"
	"github.com/bushradio/newsdesk/internal/identity"
	"github.com/bushradio/newsdesk/internal/tasks"
	"github.com/google/uuid"
)

type moduleOptions struct {
	driver   string
	dsn      string
	policy   string
	logLevel string
}

// newsroomStaff is the fixed demo roster.
type newsroomStaff struct {
	intern              uuid.UUID
	journalist          uuid.UUID
	subEditor           uuid.UUID
	xhosaTranslator     uuid.UUID
	afrikaansTranslator uuid.UUID
}

func demoStaff() newsroomStaff {
	return newsroomStaff{
		intern:              identity.StaffUUID("thandi"),
		journalist:          identity.StaffUUID("sipho"),
		subEditor:           identity.StaffUUID("marike"),
		xhosaTranslator:     identity.StaffUUID("lwazi"),
		afrikaansTranslator: identity.StaffUUID("pieter"),
	}
}

func (o *moduleOptions) buildModule(staff newsroomStaff) (*newsdesk.Module, error) {
	directory := tasks.NewMemoryDirectory()
	directory.Add(tasks.Staff{ID: staff.intern, Role: domain.RoleIntern})
	directory.Add(tasks.Staff{ID: staff.journalist, Role: domain.RoleJournalist})
	directory.Add(tasks.Staff{ID: staff.subEditor, Role: domain.RoleSubEditor})
	directory.Add(tasks.Staff{ID: staff.xhosaTranslator, Role: domain.RoleJournalist, Languages: []domain.Language{domain.LanguageXhosa}})
	directory.Add(tasks.Staff{ID: staff.afrikaansTranslator, Role: domain.RoleJournalist, Languages: []domain.Language{domain.LanguageAfrikaans}})

	cfg := newsdesk.DefaultConfig()
	cfg.Database.Driver = o.driver
	cfg.Database.DSN = o.dsn
	cfg.Logging.Level = o.logLevel
	cfg.Logging.Format = "console"
	if o.policy != "" {
		cfg.Assignment.Policy = o.policy
	}

	return newsdesk.New(cfg, di.WithDirectory(directory))
}
