package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/example/roombook/internal/persistence"
	"github.com/example/roombook/internal/persistence/sqlite"
)

type seedEmployee struct {
	ID         int64  `yaml:"id"`
	Name       string `yaml:"name"`
	Department string `yaml:"department"`
	Title      string `yaml:"title"`
	Phone      string `yaml:"phone"`
	Email      string `yaml:"email"`
}

type seedAccount struct {
	EmployeeID   int64  `yaml:"employee_id"`
	Email        string `yaml:"email"`
	PasswordHash string `yaml:"password_hash"`
	IsAdmin      bool   `yaml:"is_admin"`
}

type seedFile struct {
	Employees []seedEmployee `yaml:"employees"`
	Accounts  []seedAccount  `yaml:"accounts"`
}

// seedDirectory loads the employee roster and login accounts from a YAML file
// and upserts them. The directory is reference data; the seed file is the
// source of truth for who exists and who may sign in.
func seedDirectory(ctx context.Context, pool *sqlite.ConnectionPool, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}

	now := time.Now().UTC()

	employees := make([]persistence.Employee, 0, len(seed.Employees))
	for _, e := range seed.Employees {
		employees = append(employees, persistence.Employee{
			ID:         e.ID,
			Name:       e.Name,
			Department: e.Department,
			Title:      e.Title,
			Phone:      e.Phone,
			Email:      e.Email,
		})
	}

	accounts := make([]persistence.Account, 0, len(seed.Accounts))
	for _, a := range seed.Accounts {
		accounts = append(accounts, persistence.Account{
			EmployeeID:   a.EmployeeID,
			Email:        a.Email,
			PasswordHash: a.PasswordHash,
			IsAdmin:      a.IsAdmin,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}

	return sqlite.SeedDirectory(ctx, pool, employees, accounts)
}
