package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// statements are ordered so that referenced tables exist before their
// dependents. Everything is IF NOT EXISTS so Migrate is safe to run against
// an already-initialised database on every startup.
var statements = []string{
	`CREATE TABLE IF NOT EXISTS cutting_tools (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		tool_type TEXT NOT NULL,
		tool_subtype TEXT NOT NULL DEFAULT '',
		cutting_diameter NUMERIC(10,3) NOT NULL DEFAULT 0,
		cutting_length NUMERIC(10,3) NOT NULL DEFAULT 0,
		overall_length NUMERIC(10,3) NOT NULL DEFAULT 0,
		shank_type TEXT NOT NULL DEFAULT '',
		shank_diameter NUMERIC(10,3) NOT NULL DEFAULT 0,
		material TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		remarks TEXT NOT NULL DEFAULT '',
		total_qty INT NOT NULL DEFAULT 0,
		issued_qty INT NOT NULL DEFAULT 0,
		broken_qty INT NOT NULL DEFAULT 0,
		reorder_level INT NOT NULL DEFAULT 2,
		UNIQUE (tool_type, cutting_diameter, cutting_length, shank_type, shank_diameter, material)
	)`,
	`CREATE TABLE IF NOT EXISTS tool_txn (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		item_id BIGINT NOT NULL REFERENCES cutting_tools(id),
		action TEXT NOT NULL,
		qty INT NOT NULL DEFAULT 0,
		edges_used INT NOT NULL DEFAULT 0,
		operator TEXT NOT NULL DEFAULT '',
		machine TEXT NOT NULL DEFAULT '',
		shift TEXT NOT NULL DEFAULT '',
		job_name TEXT NOT NULL DEFAULT '',
		condition TEXT NOT NULL DEFAULT '',
		remarks TEXT NOT NULL DEFAULT '',
		txn_date DATE NOT NULL DEFAULT CURRENT_DATE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS holders (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		holder_type TEXT NOT NULL,
		holder_interface TEXT NOT NULL DEFAULT '',
		size TEXT NOT NULL DEFAULT '',
		projection NUMERIC(10,3) NOT NULL DEFAULT 0,
		location TEXT NOT NULL DEFAULT '',
		remarks TEXT NOT NULL DEFAULT '',
		total_qty INT NOT NULL DEFAULT 0,
		issued_qty INT NOT NULL DEFAULT 0,
		reorder_level INT NOT NULL DEFAULT 1,
		UNIQUE (holder_type, holder_interface, size, projection)
	)`,
	`CREATE TABLE IF NOT EXISTS holder_txn (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		item_id BIGINT NOT NULL REFERENCES holders(id),
		action TEXT NOT NULL,
		qty INT NOT NULL DEFAULT 0,
		edges_used INT NOT NULL DEFAULT 0,
		operator TEXT NOT NULL DEFAULT '',
		machine TEXT NOT NULL DEFAULT '',
		shift TEXT NOT NULL DEFAULT '',
		job_name TEXT NOT NULL DEFAULT '',
		condition TEXT NOT NULL DEFAULT '',
		remarks TEXT NOT NULL DEFAULT '',
		txn_date DATE NOT NULL DEFAULT CURRENT_DATE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS inserts (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		insert_type TEXT NOT NULL,
		size TEXT NOT NULL DEFAULT '',
		grade TEXT NOT NULL DEFAULT '',
		edges INT NOT NULL DEFAULT 0,
		total_qty INT NOT NULL DEFAULT 0,
		available_qty INT NOT NULL DEFAULT 0,
		reorder_level INT NOT NULL DEFAULT 0,
		remarks TEXT NOT NULL DEFAULT '',
		UNIQUE (insert_type, size, grade)
	)`,
	`CREATE TABLE IF NOT EXISTS insert_txn (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		item_id BIGINT NOT NULL REFERENCES inserts(id),
		action TEXT NOT NULL,
		qty INT NOT NULL DEFAULT 0,
		edges_used INT NOT NULL DEFAULT 0,
		operator TEXT NOT NULL DEFAULT '',
		machine TEXT NOT NULL DEFAULT '',
		shift TEXT NOT NULL DEFAULT '',
		job_name TEXT NOT NULL DEFAULT '',
		condition TEXT NOT NULL DEFAULT '',
		remarks TEXT NOT NULL DEFAULT '',
		txn_date DATE NOT NULL DEFAULT CURRENT_DATE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS collets (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		collet_type TEXT NOT NULL,
		collet_interface TEXT NOT NULL DEFAULT '',
		size_range TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		total_qty INT NOT NULL DEFAULT 0,
		available_qty INT NOT NULL DEFAULT 0,
		reorder_level INT NOT NULL DEFAULT 2,
		remarks TEXT NOT NULL DEFAULT '',
		UNIQUE (collet_type, collet_interface, size_range, location)
	)`,
	`CREATE TABLE IF NOT EXISTS collet_txn (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		item_id BIGINT NOT NULL REFERENCES collets(id),
		action TEXT NOT NULL,
		qty INT NOT NULL DEFAULT 0,
		edges_used INT NOT NULL DEFAULT 0,
		operator TEXT NOT NULL DEFAULT '',
		machine TEXT NOT NULL DEFAULT '',
		shift TEXT NOT NULL DEFAULT '',
		job_name TEXT NOT NULL DEFAULT '',
		condition TEXT NOT NULL DEFAULT '',
		remarks TEXT NOT NULL DEFAULT '',
		txn_date DATE NOT NULL DEFAULT CURRENT_DATE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS gauges (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		gauge_code TEXT NOT NULL UNIQUE,
		category TEXT NOT NULL DEFAULT '',
		subtype TEXT NOT NULL DEFAULT '',
		mechanism TEXT NOT NULL DEFAULT '',
		measuring_range TEXT NOT NULL DEFAULT '',
		least_count TEXT NOT NULL DEFAULT '',
		make TEXT NOT NULL DEFAULT '',
		serial_no TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		calibration_freq INT NOT NULL DEFAULT 365,
		last_calibration DATE,
		next_calibration DATE,
		status TEXT NOT NULL DEFAULT 'OK',
		remarks TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS gauge_issue_txn (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		gauge_id BIGINT NOT NULL REFERENCES gauges(id),
		action TEXT NOT NULL,
		operator TEXT NOT NULL DEFAULT '',
		machine TEXT NOT NULL DEFAULT '',
		job_name TEXT NOT NULL DEFAULT '',
		shift TEXT NOT NULL DEFAULT '',
		condition_on_return TEXT NOT NULL DEFAULT '',
		remarks TEXT NOT NULL DEFAULT '',
		txn_date DATE NOT NULL DEFAULT CURRENT_DATE
	)`,
	`CREATE TABLE IF NOT EXISTS gauge_calibration_txn (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		gauge_id BIGINT NOT NULL REFERENCES gauges(id),
		calibration_date DATE NOT NULL,
		calibrated_by TEXT NOT NULL DEFAULT '',
		result TEXT NOT NULL DEFAULT '',
		certificate_no TEXT NOT NULL DEFAULT '',
		remarks TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS customer_master (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		customer_name TEXT NOT NULL UNIQUE,
		short_code TEXT NOT NULL DEFAULT '',
		remarks TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS customer_challan (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		customer_id BIGINT NOT NULL REFERENCES customer_master(id),
		challan_no TEXT NOT NULL,
		challan_date DATE NOT NULL,
		status TEXT NOT NULL DEFAULT 'OPEN',
		remarks TEXT NOT NULL DEFAULT '',
		UNIQUE (customer_id, challan_no)
	)`,
	`CREATE TABLE IF NOT EXISTS material_inward (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		challan_id BIGINT NOT NULL REFERENCES customer_challan(id),
		item_code TEXT NOT NULL,
		process TEXT NOT NULL DEFAULT '',
		inward_qty INT NOT NULL,
		available_qty INT NOT NULL,
		box_tray TEXT NOT NULL DEFAULT '',
		remarks TEXT NOT NULL DEFAULT '',
		UNIQUE (challan_id, item_code, process)
	)`,
	`CREATE TABLE IF NOT EXISTS material_dispatch (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		challan_id BIGINT NOT NULL REFERENCES customer_challan(id),
		inward_id BIGINT NOT NULL REFERENCES material_inward(id),
		dispatch_challan_no TEXT NOT NULL,
		dispatch_date DATE NOT NULL,
		ok_qty INT NOT NULL DEFAULT 0,
		rej_qty INT NOT NULL DEFAULT 0,
		cd_qty INT NOT NULL DEFAULT 0,
		nd_qty INT NOT NULL DEFAULT 0,
		nd_pw_qty INT NOT NULL DEFAULT 0,
		total_qty INT NOT NULL,
		remarks TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS item_code_master (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		item_code TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		remarks TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS item_code_docs (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		item_code_id BIGINT NOT NULL REFERENCES item_code_master(id) ON DELETE CASCADE,
		doc_name TEXT NOT NULL,
		stored_name TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		uploaded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS shift_header (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		shift_date DATE NOT NULL,
		shift TEXT NOT NULL,
		shift_incharge TEXT NOT NULL,
		remarks TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (shift_date, shift)
	)`,
	`CREATE TABLE IF NOT EXISTS shift_production (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		shift_id BIGINT NOT NULL REFERENCES shift_header(id) ON DELETE CASCADE,
		item_code TEXT NOT NULL,
		machine TEXT NOT NULL DEFAULT '',
		operator TEXT NOT NULL DEFAULT '',
		ok_qty INT NOT NULL DEFAULT 0,
		rej_qty INT NOT NULL DEFAULT 0,
		remarks TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS shift_setup (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		shift_id BIGINT NOT NULL REFERENCES shift_header(id) ON DELETE CASCADE,
		machine TEXT NOT NULL DEFAULT '',
		job_name TEXT NOT NULL DEFAULT '',
		change_time TEXT NOT NULL DEFAULT '',
		start_time TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS shift_attendance (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		shift_id BIGINT NOT NULL REFERENCES shift_header(id) ON DELETE CASCADE,
		operator TEXT NOT NULL,
		status TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS shift_downtime (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		shift_id BIGINT NOT NULL REFERENCES shift_header(id) ON DELETE CASCADE,
		machine TEXT NOT NULL DEFAULT '',
		reason TEXT NOT NULL DEFAULT '',
		minutes INT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS machine_master (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		machine_code TEXT NOT NULL UNIQUE,
		machine_name TEXT NOT NULL,
		machine_type TEXT NOT NULL,
		controller TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'ACTIVE',
		install_date DATE,
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS pm_master (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		machine_code TEXT NOT NULL REFERENCES machine_master(machine_code),
		pm_name TEXT NOT NULL,
		frequency_days INT NOT NULL,
		responsibility TEXT NOT NULL DEFAULT '',
		checklist TEXT NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS pm_schedule (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		pm_id BIGINT NOT NULL REFERENCES pm_master(id),
		last_done_date DATE,
		next_due_date DATE NOT NULL,
		status TEXT NOT NULL DEFAULT 'DUE'
	)`,
	`CREATE TABLE IF NOT EXISTS pm_history (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		pm_id BIGINT NOT NULL REFERENCES pm_master(id),
		done_date DATE NOT NULL,
		done_by TEXT NOT NULL DEFAULT '',
		remarks TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS breakdown_log (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		machine_code TEXT NOT NULL REFERENCES machine_master(machine_code),
		breakdown_date DATE NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL DEFAULT '',
		downtime_min INT NOT NULL DEFAULT 0,
		problem TEXT NOT NULL,
		root_cause TEXT NOT NULL DEFAULT '',
		action_taken TEXT NOT NULL DEFAULT '',
		handled_by TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'OPEN',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS customer_complaint (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		complaint_no TEXT NOT NULL UNIQUE,
		complaint_date DATE NOT NULL,
		customer_id BIGINT NOT NULL REFERENCES customer_master(id),
		customer_ref_no TEXT NOT NULL DEFAULT '',
		item_code TEXT NOT NULL,
		batch_no TEXT NOT NULL DEFAULT '',
		qty_affected INT NOT NULL DEFAULT 0,
		issue_category TEXT NOT NULL,
		issue_description TEXT NOT NULL,
		severity TEXT NOT NULL DEFAULT 'MED',
		status TEXT NOT NULL DEFAULT 'OPEN',
		machine_code TEXT NOT NULL DEFAULT '',
		job_no TEXT NOT NULL DEFAULT '',
		shift_date TEXT NOT NULL DEFAULT '',
		shift TEXT NOT NULL DEFAULT '',
		assigned_to TEXT NOT NULL DEFAULT '',
		containment_action TEXT NOT NULL DEFAULT '',
		root_cause_5why TEXT NOT NULL DEFAULT '',
		corrective_action TEXT NOT NULL DEFAULT '',
		preventive_action TEXT NOT NULL DEFAULT '',
		closure_date TEXT NOT NULL DEFAULT '',
		closure_remarks TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS complaint_action_log (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		complaint_id BIGINT NOT NULL REFERENCES customer_complaint(id),
		action_date DATE NOT NULL,
		action_type TEXT NOT NULL,
		notes TEXT NOT NULL,
		by_user TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS audit_logs (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		actor TEXT NOT NULL DEFAULT '',
		action TEXT NOT NULL,
		entity TEXT NOT NULL,
		entity_id TEXT NOT NULL DEFAULT '',
		meta JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_tool_txn_item ON tool_txn(item_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tool_txn_date ON tool_txn(txn_date)`,
	`CREATE INDEX IF NOT EXISTS idx_material_inward_challan ON material_inward(challan_id)`,
	`CREATE INDEX IF NOT EXISTS idx_material_dispatch_inward ON material_dispatch(inward_id)`,
	`CREATE INDEX IF NOT EXISTS idx_material_dispatch_challan_no ON material_dispatch(dispatch_challan_no)`,
	`CREATE INDEX IF NOT EXISTS idx_complaint_customer ON customer_complaint(customer_id)`,
	`CREATE INDEX IF NOT EXISTS idx_complaint_status ON customer_complaint(status)`,
	`CREATE INDEX IF NOT EXISTS idx_complaint_date ON customer_complaint(complaint_date)`,
	`CREATE INDEX IF NOT EXISTS idx_action_log_complaint ON complaint_action_log(complaint_id)`,
	`CREATE INDEX IF NOT EXISTS idx_breakdown_machine ON breakdown_log(machine_code)`,
	`CREATE INDEX IF NOT EXISTS idx_breakdown_status ON breakdown_log(status)`,
	`CREATE INDEX IF NOT EXISTS idx_pm_schedule_status ON pm_schedule(status)`,
	`CREATE INDEX IF NOT EXISTS idx_gauges_status ON gauges(status)`,
}

// columnUpgrades add columns introduced after the first release. IF NOT
// EXISTS keeps them no-op on databases that already carry them.
var columnUpgrades = []string{
	`ALTER TABLE item_code_docs ADD COLUMN IF NOT EXISTS doc_category TEXT NOT NULL DEFAULT 'PPAP'`,
	`ALTER TABLE item_code_docs ADD COLUMN IF NOT EXISTS version_no INT NOT NULL DEFAULT 1`,
	`ALTER TABLE item_code_docs ADD COLUMN IF NOT EXISTS is_current BOOLEAN NOT NULL DEFAULT TRUE`,
	`CREATE INDEX IF NOT EXISTS idx_docs_item_code ON item_code_docs(item_code_id, doc_category, is_current)`,
}

// Migrate creates the schema. It is idempotent and runs at startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("platform/db: migrate: %w", err)
		}
	}
	for _, stmt := range columnUpgrades {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("platform/db: column upgrade: %w", err)
		}
	}
	return nil
}
