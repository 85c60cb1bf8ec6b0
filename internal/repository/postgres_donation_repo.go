package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Olamidayoo/harvest-helping-hands/internal/model"
)

// donationColumns はdonationsテーブルのSELECT対象カラム。
const donationColumns = `id, donor_id, food_name, description, quantity, location,
	expiry_date, available_time, contact_name, contact_phone,
	status, volunteer_id, image_url, created_at, updated_at`

// PostgresDonationRepo はPostgreSQLを使用した寄付リポジトリ。
type PostgresDonationRepo struct {
	db *sql.DB
}

// NewPostgresDonationRepo はPostgresDonationRepoを生成する。
func NewPostgresDonationRepo(db *sql.DB) *PostgresDonationRepo {
	return &PostgresDonationRepo{db: db}
}

// FindByID は指定IDの寄付を取得する。見つからない場合はnilを返す。
func (r *PostgresDonationRepo) FindByID(ctx context.Context, id string) (*model.Donation, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+donationColumns+` FROM donations WHERE id = $1`,
		id,
	)

	donation, err := scanDonation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find donation: %w", err)
	}

	return donation, nil
}

// Create は寄付を作成する。
func (r *PostgresDonationRepo) Create(ctx context.Context, donation *model.Donation) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO donations (id, donor_id, food_name, description, quantity, location,
		 expiry_date, available_time, contact_name, contact_phone,
		 status, volunteer_id, image_url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		donation.ID, donation.DonorID, donation.FoodName, donation.Description,
		donation.Quantity, donation.Location, donation.ExpiryDate, donation.AvailableTime,
		donation.ContactName, donation.ContactPhone, string(donation.Status),
		donation.VolunteerID, donation.ImageURL, donation.CreatedAt, donation.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert donation: %w", err)
	}
	return nil
}

// List はフィルタに一致する寄付一覧をcreated_at降順で返す。
// フィルタのゼロ値フィールドは条件に含めない。
func (r *PostgresDonationRepo) List(ctx context.Context, filter model.DonationFilter) ([]*model.Donation, error) {
	query := `SELECT ` + donationColumns + ` FROM donations`
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.DonorID != "" {
		args = append(args, filter.DonorID)
		conditions = append(conditions, fmt.Sprintf("donor_id = $%d", len(args)))
	}
	if filter.VolunteerID != "" {
		args = append(args, filter.VolunteerID)
		conditions = append(conditions, fmt.Sprintf("volunteer_id = $%d", len(args)))
	}

	for i, cond := range conditions {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	// タイムスタンプが同一の場合の順序を安定させるためidを第2キーにする
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list donations: %w", err)
	}
	defer rows.Close()

	var donations []*model.Donation
	for rows.Next() {
		donation, err := scanDonation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan donation: %w", err)
		}
		donations = append(donations, donation)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate donations: %w", err)
	}

	return donations, nil
}

// ListWithDonor は全寄付をドナーのusername付きでcreated_at降順で返す。
func (r *PostgresDonationRepo) ListWithDonor(ctx context.Context) ([]model.DonationWithDonor, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT d.id, d.donor_id, d.food_name, d.description, d.quantity, d.location,
		 d.expiry_date, d.available_time, d.contact_name, d.contact_phone,
		 d.status, d.volunteer_id, d.image_url, d.created_at, d.updated_at,
		 p.username
		 FROM donations d
		 JOIN profiles p ON p.id = d.donor_id
		 ORDER BY d.created_at DESC, d.id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list donations with donor: %w", err)
	}
	defer rows.Close()

	var results []model.DonationWithDonor
	for rows.Next() {
		var item model.DonationWithDonor
		var status string
		var expiryDate sql.NullTime
		var volunteerID, imageURL sql.NullString
		err := rows.Scan(
			&item.ID, &item.DonorID, &item.FoodName, &item.Description,
			&item.Quantity, &item.Location, &expiryDate, &item.AvailableTime,
			&item.ContactName, &item.ContactPhone, &status,
			&volunteerID, &imageURL, &item.CreatedAt, &item.UpdatedAt,
			&item.DonorUsername,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan donation with donor: %w", err)
		}
		item.Status = model.DonationStatus(status)
		if expiryDate.Valid {
			t := expiryDate.Time
			item.ExpiryDate = &t
		}
		if volunteerID.Valid {
			v := volunteerID.String
			item.VolunteerID = &v
		}
		if imageURL.Valid {
			u := imageURL.String
			item.ImageURL = &u
		}
		results = append(results, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate donations with donor: %w", err)
	}

	return results, nil
}

// AcceptIfPending はstatusがpendingの場合のみaccepted + volunteer_idに更新する。
// 条件付きUPDATEにより、2つの引き受け要求が競合した場合は後着側が0行更新となる。
func (r *PostgresDonationRepo) AcceptIfPending(ctx context.Context, donationID, volunteerID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE donations
		 SET status = 'accepted', volunteer_id = $2, updated_at = $3
		 WHERE id = $1 AND status = 'pending'`,
		donationID, volunteerID, time.Now(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to accept donation: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// CompleteIfAccepted はstatusがacceptedの場合のみcompletedに更新する。
func (r *PostgresDonationRepo) CompleteIfAccepted(ctx context.Context, donationID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE donations
		 SET status = 'completed', updated_at = $2
		 WHERE id = $1 AND status = 'accepted'`,
		donationID, time.Now(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to complete donation: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// SetStatus はstatusを現在の状態にかかわらず無条件に上書きする。
// 同一の終端状態を再適用しても0行更新にはならず、エラーも返さない（冪等）。
func (r *PostgresDonationRepo) SetStatus(ctx context.Context, donationID string, status model.DonationStatus, volunteerID *string) error {
	var result sql.Result
	var err error

	if volunteerID != nil {
		result, err = r.db.ExecContext(ctx,
			`UPDATE donations SET status = $2, volunteer_id = $3, updated_at = $4 WHERE id = $1`,
			donationID, string(status), *volunteerID, time.Now(),
		)
	} else {
		result, err = r.db.ExecContext(ctx,
			`UPDATE donations SET status = $2, updated_at = $3 WHERE id = $1`,
			donationID, string(status), time.Now(),
		)
	}
	if err != nil {
		return fmt.Errorf("failed to set donation status: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("donation not found: %s", donationID)
	}
	return nil
}

// Delete は指定IDの寄付を完全に削除する。
func (r *PostgresDonationRepo) Delete(ctx context.Context, donationID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM donations WHERE id = $1`,
		donationID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete donation: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("donation not found: %s", donationID)
	}
	return nil
}

// rowScanner は*sql.Rowと*sql.Rowsの共通Scanインターフェース。
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanDonation は1行分の寄付レコードをスキャンする。
func scanDonation(row rowScanner) (*model.Donation, error) {
	donation := &model.Donation{}
	var status string
	var expiryDate sql.NullTime
	var volunteerID, imageURL sql.NullString

	err := row.Scan(
		&donation.ID, &donation.DonorID, &donation.FoodName, &donation.Description,
		&donation.Quantity, &donation.Location, &expiryDate, &donation.AvailableTime,
		&donation.ContactName, &donation.ContactPhone, &status,
		&volunteerID, &imageURL, &donation.CreatedAt, &donation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	donation.Status = model.DonationStatus(status)
	if expiryDate.Valid {
		t := expiryDate.Time
		donation.ExpiryDate = &t
	}
	if volunteerID.Valid {
		v := volunteerID.String
		donation.VolunteerID = &v
	}
	if imageURL.Valid {
		u := imageURL.String
		donation.ImageURL = &u
	}

	return donation, nil
}

// compile-time interface check
var _ DonationRepository = (*PostgresDonationRepo)(nil)
