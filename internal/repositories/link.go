package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/qlink/internal/models"
	"github.com/desertthunder/qlink/internal/shared"
)

const linkColumns = `id, sequence, trigger_id, trigger_name, trigger_artists, trigger_uri,
	target_id, target_name, target_artists, target_uri, created_at, updated_at`

// LinkRepository implements [models.Repository] and [models.LinkStore] for links.
//
// Every statement is parameterized; track names and artists come straight from the service and are never
// interpolated into SQL. A trigger id maps to at most one link, see [LinkRepository.Insert].
type LinkRepository struct {
	db *sql.DB
}

// NewLinkRepository creates a new LinkRepository with the given database connection
func NewLinkRepository(db *sql.DB) *LinkRepository {
	return &LinkRepository{db: db}
}

// Create inserts a new [models.Link] with a generated ID and sequence.
// Fails if the trigger is already linked.
func (r *LinkRepository) Create(link *models.Link) error {
	if err := link.Validate(); err != nil {
		return fmt.Errorf("%w: validation failed: %v", shared.ErrStore, err)
	}

	sequence, err := NextSequence(r.db, "links")
	if err != nil {
		return fmt.Errorf("%w: failed to generate sequence: %v", shared.ErrStore, err)
	}

	trigger, target := link.Trigger(), link.Target()
	triggerArtists, err := encodeArtists(trigger.Artists)
	if err != nil {
		return err
	}
	targetArtists, err := encodeArtists(target.Artists)
	if err != nil {
		return err
	}

	id := shared.GenerateID()

	query := `
		INSERT INTO links (` + linkColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		trigger.ID,
		trigger.Name,
		triggerArtists,
		trigger.URI,
		target.ID,
		target.Name,
		targetArtists,
		target.URI,
		link.CreatedAt(),
		link.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("%w: failed to insert link: %v", shared.ErrStore, err)
	}

	link.SetID(id)
	link.SetSequence(sequence)
	return nil
}

// Insert stores link, overwriting the target of an existing link with the same trigger.
//
// On overwrite link takes the stored ID, sequence and creation time.
func (r *LinkRepository) Insert(link *models.Link) error {
	existing, err := r.FindByTriggerID(link.Trigger().ID)
	if errors.Is(err, shared.ErrLinkNotFound) {
		return r.Create(link)
	}
	if err != nil {
		return err
	}

	link.SetID(existing.ID())
	link.SetSequence(existing.Sequence())
	link.SetCreatedAt(existing.CreatedAt())
	return r.Update(link)
}

// Get retrieves a link by ID
func (r *LinkRepository) Get(id string) (*models.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE id = ?`
	return r.scan(r.db.QueryRow(query, id))
}

// FindByTriggerID retrieves the link triggered by the track with the given service id.
func (r *LinkRepository) FindByTriggerID(id string) (*models.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE trigger_id = ?`
	return r.scan(r.db.QueryRow(query, id))
}

// FindByTargetID retrieves the oldest link whose target is the track with the given service id.
func (r *LinkRepository) FindByTargetID(id string) (*models.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE target_id = ? ORDER BY sequence ASC LIMIT 1`
	return r.scan(r.db.QueryRow(query, id))
}

// Update replaces the target of an existing link.
func (r *LinkRepository) Update(link *models.Link) error {
	if err := link.Validate(); err != nil {
		return fmt.Errorf("%w: validation failed: %v", shared.ErrStore, err)
	}

	now := time.Now()
	link.SetUpdatedAt(now)

	target := link.Target()
	targetArtists, err := encodeArtists(target.Artists)
	if err != nil {
		return err
	}

	query := `
		UPDATE links
		SET target_id = ?, target_name = ?, target_artists = ?, target_uri = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query, target.ID, target.Name, targetArtists, target.URI, now, link.ID())
	if err != nil {
		return fmt.Errorf("%w: failed to update link: %v", shared.ErrStore, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: failed to get affected rows: %v", shared.ErrStore, err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrLinkNotFound, link.ID())
	}

	return nil
}

// Delete removes a link by ID
func (r *LinkRepository) Delete(id string) error {
	return r.deleteWhere("id", id)
}

// DeleteByTriggerID removes the link triggered by the given track id
func (r *LinkRepository) DeleteByTriggerID(id string) error {
	return r.deleteWhere("trigger_id", id)
}

// deleteWhere only ever receives one of the fixed column names above.
func (r *LinkRepository) deleteWhere(column, value string) error {
	result, err := r.db.Exec("DELETE FROM links WHERE "+column+" = ?", value)
	if err != nil {
		return fmt.Errorf("%w: failed to delete link: %v", shared.ErrStore, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: failed to get affected rows: %v", shared.ErrStore, err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrLinkNotFound, value)
	}
	return nil
}

// List retrieves all links matching the given criteria, ordered by sequence.
//
// Supported criteria: "target_id" (exact) and "search" (substring of either track name).
func (r *LinkRepository) List(criteria map[string]any) ([]*models.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE 1 = 1`
	args := []any{}

	if targetID, ok := criteria["target_id"].(string); ok && targetID != "" {
		query += " AND target_id = ?"
		args = append(args, targetID)
	}

	if search, ok := criteria["search"].(string); ok && search != "" {
		query += ` AND (trigger_name LIKE ? ESCAPE '\' OR target_name LIKE ? ESCAPE '\')`
		pattern := "%" + likeEscaper.Replace(search) + "%"
		args = append(args, pattern, pattern)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query links: %v", shared.ErrStore, err)
	}
	defer rows.Close()

	var links []*models.Link
	for rows.Next() {
		link, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: row iteration error: %v", shared.ErrStore, err)
	}

	return links, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// All returns a snapshot of every stored link.
func (r *LinkRepository) All() ([]*models.Link, error) {
	return r.List(nil)
}

type scanner interface {
	Scan(dest ...any) error
}

// scan reads one row from either [sql.Row] or [sql.Rows] into a [models.Link]
func (r *LinkRepository) scan(row scanner) (*models.Link, error) {
	var (
		id             string
		sequence       int
		trigger        models.Track
		triggerArtists string
		target         models.Track
		targetArtists  string
		createdAt      time.Time
		updatedAt      time.Time
	)

	err := row.Scan(
		&id, &sequence,
		&trigger.ID, &trigger.Name, &triggerArtists, &trigger.URI,
		&target.ID, &target.Name, &targetArtists, &target.URI,
		&createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrLinkNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to scan link: %v", shared.ErrStore, err)
	}

	if trigger.Artists, err = decodeArtists(triggerArtists); err != nil {
		return nil, err
	}
	if target.Artists, err = decodeArtists(targetArtists); err != nil {
		return nil, err
	}

	link := models.NewLink(sequence, trigger, target)
	link.SetID(id)
	link.SetCreatedAt(createdAt)
	link.SetUpdatedAt(updatedAt)
	return link, nil
}

func encodeArtists(artists []string) (string, error) {
	if artists == nil {
		artists = []string{}
	}
	data, err := json.Marshal(artists)
	if err != nil {
		return "", fmt.Errorf("%w: failed to encode artists: %v", shared.ErrStore, err)
	}
	return string(data), nil
}

func decodeArtists(data string) ([]string, error) {
	var artists []string
	if err := json.Unmarshal([]byte(data), &artists); err != nil {
		return nil, fmt.Errorf("%w: failed to decode artists: %v", shared.ErrStore, err)
	}
	return artists, nil
}
