package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/bergsoft/invoiceflow/internal/models"
	"github.com/bergsoft/invoiceflow/internal/status"
	"github.com/bergsoft/invoiceflow/pkg/database"
)

// InvoiceRepository handles invoice header and line persistence.
// Every multi-step write runs inside a transaction so the store never
// keeps a header without its lines or orphaned lines after a delete.
type InvoiceRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *database.DB, logger *zap.Logger) *InvoiceRepository {
	return &InvoiceRepository{db: db, logger: logger}
}

const lineColumns = `header_id, lineno, no, description, qty, price, discount, uom,
		vatpercent, vatamount, lineamount, no_mapped, desc_mapped`

// List returns all invoice headers, newest invoice date first. An
// empty store yields an empty slice, not an error.
func (r *InvoiceRepository) List(ctx context.Context) ([]models.InvoiceHeader, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, invoicenumber, vendorname, vendorno, registrationno,
			vatno, invoicedate, totalamount, status
		FROM invoice_header
		ORDER BY invoicedate DESC, id DESC
	`)
	if err != nil {
		r.logger.Error("Failed to list invoices", zap.Error(err))
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	headers := make([]models.InvoiceHeader, 0)
	for rows.Next() {
		var h models.InvoiceHeader
		if err := scanHeader(rows, &h); err != nil {
			return nil, fmt.Errorf("failed to scan invoice header: %w", err)
		}
		headers = append(headers, h)
	}
	return headers, rows.Err()
}

// ListWithLines returns all invoices with their lines in the List
// order, using one query for headers and one for lines.
func (r *InvoiceRepository) ListWithLines(ctx context.Context) ([]models.Invoice, error) {
	headers, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	invoices := make([]models.Invoice, len(headers))
	index := make(map[int64]int, len(headers))
	for i, h := range headers {
		invoices[i] = models.Invoice{Header: h, Lines: make([]models.InvoiceLine, 0)}
		index[h.ID] = i
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+lineColumns+`
		FROM invoice_line
		ORDER BY header_id, lineno
	`)
	if err != nil {
		r.logger.Error("Failed to list invoice lines", zap.Error(err))
		return nil, fmt.Errorf("failed to list invoice lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l models.InvoiceLine
		if err := scanLine(rows, &l); err != nil {
			return nil, fmt.Errorf("failed to scan invoice line: %w", err)
		}
		if i, ok := index[l.HeaderID]; ok {
			invoices[i].Lines = append(invoices[i].Lines, l)
		}
	}
	return invoices, rows.Err()
}

// Get returns a header with its lines. ErrNotFound when the header is
// absent; a header without lines returns an empty slice.
func (r *InvoiceRepository) Get(ctx context.Context, id int64) (*models.Invoice, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, invoicenumber, vendorname, vendorno, registrationno,
			vatno, invoicedate, totalamount, status
		FROM invoice_header
		WHERE id = ?
	`, id)

	var invoice models.Invoice
	if err := scanHeader(row, &invoice.Header); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get invoice header", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get invoice header: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+lineColumns+`
		FROM invoice_line
		WHERE header_id = ?
		ORDER BY lineno
	`, id)
	if err != nil {
		r.logger.Error("Failed to get invoice lines", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get invoice lines: %w", err)
	}
	defer rows.Close()

	invoice.Lines = make([]models.InvoiceLine, 0)
	for rows.Next() {
		var l models.InvoiceLine
		if err := scanLine(rows, &l); err != nil {
			return nil, fmt.Errorf("failed to scan invoice line: %w", err)
		}
		invoice.Lines = append(invoice.Lines, l)
	}
	return &invoice, rows.Err()
}

// CreateWithLines inserts the header and all its lines in one
// transaction and returns the generated header id.
func (r *InvoiceRepository) CreateWithLines(ctx context.Context, header *models.InvoiceHeader, lines []models.InvoiceLine) (int64, error) {
	var headerID int64

	err := r.db.WithTransaction(func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO invoice_header (
				invoicenumber, vendorname, vendorno, registrationno,
				vatno, invoicedate, totalamount, status
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			header.InvoiceNumber, header.VendorName, header.VendorNo,
			header.RegistrationNo, header.VATNo, header.InvoiceDate,
			header.TotalAmount, header.Status,
		)
		if err != nil {
			return fmt.Errorf("failed to insert header: %w", err)
		}

		headerID, err = result.LastInsertId()
		if err != nil || headerID == 0 {
			return fmt.Errorf("%w: %v", ErrNoInsertID, err)
		}

		for i := range lines {
			lines[i].HeaderID = headerID
			if err := insertLine(ctx, tx, &lines[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to create invoice", zap.Error(err))
		return 0, err
	}

	header.ID = headerID
	r.logger.Info("Invoice created",
		zap.Int64("id", headerID),
		zap.Int("lines", len(lines)))
	return headerID, nil
}

// Update overwrites the header and reconciles the lines with the
// supplied set in one transaction: matched linenos are updated, new
// ones inserted, stored linenos not supplied are deleted.
func (r *InvoiceRepository) Update(ctx context.Context, id int64, header *models.InvoiceHeader, lines []models.InvoiceLine) error {
	err := r.db.WithTransaction(func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE invoice_header
			SET invoicenumber = ?, vendorname = ?, vendorno = ?,
				registrationno = ?, vatno = ?, invoicedate = ?,
				totalamount = ?, status = ?
			WHERE id = ?
		`,
			header.InvoiceNumber, header.VendorName, header.VendorNo,
			header.RegistrationNo, header.VATNo, header.InvoiceDate,
			header.TotalAmount, header.Status, id,
		)
		if err != nil {
			return fmt.Errorf("failed to update header: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		if affected == 0 {
			return ErrNotFound
		}

		keep := make([]string, 0, len(lines))
		args := []interface{}{id}
		for i := range lines {
			lines[i].HeaderID = id
			if err := upsertLine(ctx, tx, &lines[i]); err != nil {
				return err
			}
			keep = append(keep, "?")
			args = append(args, lines[i].LineNo)
		}

		// Prune stored lines the caller no longer supplies.
		prune := `DELETE FROM invoice_line WHERE header_id = ?`
		if len(keep) > 0 {
			prune += ` AND lineno NOT IN (` + strings.Join(keep, ", ") + `)`
		}
		if _, err := tx.ExecContext(ctx, prune, args...); err != nil {
			return fmt.Errorf("failed to prune lines: %w", err)
		}
		return nil
	})
	if err != nil {
		if err != ErrNotFound {
			r.logger.Error("Failed to update invoice", zap.Int64("id", id), zap.Error(err))
		}
		return err
	}

	r.logger.Info("Invoice updated", zap.Int64("id", id), zap.Int("lines", len(lines)))
	return nil
}

// Delete removes the lines and then the header in one transaction.
func (r *InvoiceRepository) Delete(ctx context.Context, id int64) error {
	err := r.db.WithTransaction(func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM invoice_line WHERE header_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete lines: %w", err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM invoice_header WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete header: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		if affected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		if err != ErrNotFound {
			r.logger.Error("Failed to delete invoice", zap.Int64("id", id), zap.Error(err))
		}
		return err
	}

	r.logger.Info("Invoice deleted", zap.Int64("id", id))
	return nil
}

// SetStatus updates only the status field after validating the
// transition against the lifecycle machine. Line records are untouched.
func (r *InvoiceRepository) SetStatus(ctx context.Context, id int64, to status.Status) error {
	if !to.IsValid() {
		return status.ErrInvalidStatus
	}

	return r.db.WithTransaction(func(tx *sql.Tx) error {
		var current string
		err := tx.QueryRowContext(ctx, `SELECT status FROM invoice_header WHERE id = ?`, id).Scan(&current)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to read current status: %w", err)
		}

		if !status.Status(current).CanTransition(to) {
			return fmt.Errorf("%w: %s -> %s", status.ErrInvalidTransition, current, to)
		}

		if _, err := tx.ExecContext(ctx, `UPDATE invoice_header SET status = ? WHERE id = ?`, to.String(), id); err != nil {
			return fmt.Errorf("failed to update status: %w", err)
		}

		r.logger.Info("Invoice status changed",
			zap.Int64("id", id),
			zap.String("from", current),
			zap.String("to", to.String()))
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanHeader(row rowScanner, h *models.InvoiceHeader) error {
	return row.Scan(
		&h.ID, &h.InvoiceNumber, &h.VendorName, &h.VendorNo,
		&h.RegistrationNo, &h.VATNo, &h.InvoiceDate, &h.TotalAmount,
		&h.Status,
	)
}

func scanLine(row rowScanner, l *models.InvoiceLine) error {
	return row.Scan(
		&l.HeaderID, &l.LineNo, &l.No, &l.Description, &l.Qty, &l.Price,
		&l.Discount, &l.UOM, &l.VATPercent, &l.VATAmount, &l.LineAmount,
		&l.NoMapped, &l.DescMapped,
	)
}

func insertLine(ctx context.Context, tx *sql.Tx, l *models.InvoiceLine) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO invoice_line (`+lineColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		l.HeaderID, l.LineNo, l.No, l.Description, l.Qty, l.Price,
		l.Discount, l.UOM, l.VATPercent, l.VATAmount, l.LineAmount,
		l.NoMapped, l.DescMapped,
	)
	if err != nil {
		return fmt.Errorf("failed to insert line %d: %w", l.LineNo, err)
	}
	return nil
}

func upsertLine(ctx context.Context, tx *sql.Tx, l *models.InvoiceLine) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO invoice_line (`+lineColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(header_id, lineno) DO UPDATE SET
			no = excluded.no,
			description = excluded.description,
			qty = excluded.qty,
			price = excluded.price,
			discount = excluded.discount,
			uom = excluded.uom,
			vatpercent = excluded.vatpercent,
			vatamount = excluded.vatamount,
			lineamount = excluded.lineamount,
			no_mapped = excluded.no_mapped,
			desc_mapped = excluded.desc_mapped
	`,
		l.HeaderID, l.LineNo, l.No, l.Description, l.Qty, l.Price,
		l.Discount, l.UOM, l.VATPercent, l.VATAmount, l.LineAmount,
		l.NoMapped, l.DescMapped,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert line %d: %w", l.LineNo, err)
	}
	return nil
}
