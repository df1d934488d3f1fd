package admin

import (
	"context"
	"strings"

	"classtrade/internal/validate"
)

const clientColumns = `id, name, contact_email, created_at, updated_at`

func scanClient(row interface{ Scan(...any) error }) (Client, error) {
	var c Client
	err := row.Scan(&c.ID, &c.Name, &c.ContactEmail, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (in *ClientInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.ContactEmail = strings.ToLower(strings.TrimSpace(in.ContactEmail))
}

func (s *Service) CreateClient(ctx context.Context, in ClientInput) (Client, error) {
	in.normalize()
	if err := validate.Struct(in); err != nil {
		return Client{}, err
	}
	c, err := scanClient(s.db.QueryRow(ctx, `
		INSERT INTO clients (name, contact_email)
		VALUES ($1, $2)
		RETURNING `+clientColumns, in.Name, in.ContactEmail))
	return c, writeErr(err, "client")
}

func (s *Service) ListClients(ctx context.Context) ([]Client, error) {
	rows, err := s.db.Query(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Service) GetClient(ctx context.Context, id int64) (Client, error) {
	c, err := scanClient(s.db.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id))
	return c, notFound(err, "client")
}

func (s *Service) UpdateClient(ctx context.Context, id int64, in ClientInput) (Client, error) {
	in.normalize()
	if err := validate.Struct(in); err != nil {
		return Client{}, err
	}
	c, err := scanClient(s.db.QueryRow(ctx, `
		UPDATE clients
		SET name = $2, contact_email = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+clientColumns, id, in.Name, in.ContactEmail))
	return c, writeErr(err, "client")
}

// DeleteClient removes a client and its managers. Clients that still own
// classes cannot be deleted.
func (s *Service) DeleteClient(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return deleteErr(err, "client")
	}
	if tag.RowsAffected() == 0 {
		return missing("client")
	}
	s.log.Info("client deleted", "client_id", id)
	return nil
}

const managerColumns = `id, client_id, name, email, phone, created_at, updated_at`

func scanManager(row interface{ Scan(...any) error }) (Manager, error) {
	var m Manager
	err := row.Scan(&m.ID, &m.ClientID, &m.Name, &m.Email, &m.Phone, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func (in *ManagerInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
}

func (s *Service) CreateManager(ctx context.Context, in ManagerInput) (Manager, error) {
	in.normalize()
	if err := validate.Struct(in); err != nil {
		return Manager{}, err
	}
	m, err := scanManager(s.db.QueryRow(ctx, `
		INSERT INTO managers (client_id, name, email, phone)
		VALUES ($1, $2, $3, $4)
		RETURNING `+managerColumns, in.ClientID, in.Name, in.Email, in.Phone))
	return m, writeErr(err, "manager")
}

func (s *Service) ListManagers(ctx context.Context, clientID int64) ([]Manager, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+managerColumns+`
		FROM managers
		WHERE client_id = $1
		ORDER BY name, id
	`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Manager{}
	for rows.Next() {
		m, err := scanManager(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Service) UpdateManager(ctx context.Context, id int64, in ManagerInput) (Manager, error) {
	in.normalize()
	if err := validate.Struct(in); err != nil {
		return Manager{}, err
	}
	m, err := scanManager(s.db.QueryRow(ctx, `
		UPDATE managers
		SET client_id = $2, name = $3, email = $4, phone = $5, updated_at = now()
		WHERE id = $1
		RETURNING `+managerColumns, id, in.ClientID, in.Name, in.Email, in.Phone))
	return m, writeErr(err, "manager")
}

func (s *Service) DeleteManager(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM managers WHERE id = $1`, id)
	if err != nil {
		return deleteErr(err, "manager")
	}
	if tag.RowsAffected() == 0 {
		return missing("manager")
	}
	return nil
}
