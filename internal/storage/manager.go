package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"MyFocusAI/pkg/models"

	_ "modernc.org/sqlite"
)

// Manager 存储管理器
type Manager struct {
	db     *sql.DB
	dbPath string
}

// NewManager 创建存储管理器
func NewManager(dataDir string) (*Manager, error) {
	// 确保数据目录存在
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "myfocus.db")

	// 注意：modernc.org/sqlite 的驱动名称是 "sqlite" 而不是 "sqlite3"
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	m := &Manager{
		db:     db,
		dbPath: dbPath,
	}

	if err := m.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return m, nil
}

// initSchema 初始化数据库表结构
func (m *Manager) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		completed BOOLEAN DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS selected_task (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		task_id TEXT,
		task_text TEXT
	);

	CREATE TABLE IF NOT EXISTS monitoring_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		state TEXT NOT NULL,
		confidence REAL NOT NULL,
		application_name TEXT,
		window_title TEXT,
		ai_analysis TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_results_timestamp ON monitoring_results(timestamp);
	CREATE INDEX IF NOT EXISTS idx_results_state ON monitoring_results(state);

	CREATE TABLE IF NOT EXISTS intervention_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		kind TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_interventions_timestamp ON intervention_logs(timestamp);

	CREATE TABLE IF NOT EXISTS daily_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		date TEXT NOT NULL UNIQUE,
		content TEXT NOT NULL,
		model TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS focus_sessions (
		id TEXT PRIMARY KEY,
		session_type TEXT NOT NULL,
		status TEXT NOT NULL,
		duration_minutes INTEGER NOT NULL,
		elapsed_seconds INTEGER NOT NULL,
		task_id TEXT,
		task_text TEXT,
		started_at DATETIME NOT NULL,
		completed_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON focus_sessions(started_at);

	CREATE TABLE IF NOT EXISTS weekly_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		week_start TEXT NOT NULL UNIQUE,
		week_end TEXT NOT NULL,
		content TEXT NOT NULL,
		model TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := m.db.Exec(schema)
	return err
}

// Close 关闭数据库
func (m *Manager) Close() error {
	return m.db.Close()
}

// SaveTask 保存任务
func (m *Manager) SaveTask(task *models.Task) error {
	query := `
		INSERT INTO tasks (id, text, completed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := m.db.Exec(query,
		task.ID,
		task.Text,
		task.Completed,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

// GetTasks 获取所有任务
func (m *Manager) GetTasks() ([]*models.Task, error) {
	query := `
		SELECT id, text, completed, created_at, updated_at
		FROM tasks
		ORDER BY created_at DESC
	`

	rows, err := m.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task := &models.Task{}
		err := rows.Scan(
			&task.ID,
			&task.Text,
			&task.Completed,
			&task.CreatedAt,
			&task.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	return tasks, nil
}

// GetTask 根据 ID 获取任务
func (m *Manager) GetTask(id string) (*models.Task, error) {
	task := &models.Task{}
	err := m.db.QueryRow(
		`SELECT id, text, completed, created_at, updated_at FROM tasks WHERE id = ?`, id,
	).Scan(&task.ID, &task.Text, &task.Completed, &task.CreatedAt, &task.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query task: %w", err)
	}
	return task, nil
}

// UpdateTask 更新任务文本与完成状态
func (m *Manager) UpdateTask(task *models.Task) error {
	query := `UPDATE tasks SET text = ?, completed = ?, updated_at = ? WHERE id = ?`
	result, err := m.db.Exec(query, task.Text, task.Completed, time.Now(), task.ID)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("task not found: %s", task.ID)
	}
	return nil
}

// DeleteTask 删除任务
func (m *Manager) DeleteTask(id string) error {
	_, err := m.db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

// SaveSelectedTask 持久化当前绑定的任务（nil 表示清空）
// 单行表，重启后恢复上次的绑定
func (m *Manager) SaveSelectedTask(binding *models.TaskBinding) error {
	if binding == nil {
		_, err := m.db.Exec(`DELETE FROM selected_task WHERE id = 1`)
		if err != nil {
			return fmt.Errorf("failed to clear selected task: %w", err)
		}
		return nil
	}

	query := `
		INSERT INTO selected_task (id, task_id, task_text) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET task_id = excluded.task_id, task_text = excluded.task_text
	`
	_, err := m.db.Exec(query, binding.TaskID, binding.TaskText)
	if err != nil {
		return fmt.Errorf("failed to save selected task: %w", err)
	}
	return nil
}

// LoadSelectedTask 读取持久化的任务绑定，没有则返回 nil
func (m *Manager) LoadSelectedTask() (*models.TaskBinding, error) {
	binding := &models.TaskBinding{}
	err := m.db.QueryRow(`SELECT task_id, task_text FROM selected_task WHERE id = 1`).
		Scan(&binding.TaskID, &binding.TaskText)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load selected task: %w", err)
	}
	return binding, nil
}

// SaveMonitoringResult 保存一次监控分类结果
func (m *Manager) SaveMonitoringResult(r *models.ClassificationResult) error {
	query := `
		INSERT INTO monitoring_results (timestamp, state, confidence, application_name, window_title, ai_analysis)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := m.db.Exec(query,
		r.Timestamp,
		string(r.State),
		r.Confidence,
		r.ApplicationName,
		r.WindowTitle,
		r.AIAnalysis,
	)
	if err != nil {
		return fmt.Errorf("failed to insert monitoring result: %w", err)
	}
	return nil
}

// GetRecentResults 获取最近的 N 条监控结果
func (m *Manager) GetRecentResults(limit int) ([]*models.ClassificationResult, error) {
	query := `
		SELECT timestamp, state, confidence, application_name, window_title, ai_analysis
		FROM monitoring_results
		ORDER BY timestamp DESC
		LIMIT ?
	`

	rows, err := m.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query monitoring results: %w", err)
	}
	defer rows.Close()

	var results []*models.ClassificationResult
	for rows.Next() {
		r := &models.ClassificationResult{}
		var state string
		err := rows.Scan(
			&r.Timestamp,
			&state,
			&r.Confidence,
			&r.ApplicationName,
			&r.WindowTitle,
			&r.AIAnalysis,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan monitoring result: %w", err)
		}
		r.State = models.FocusState(state)
		results = append(results, r)
	}

	return results, nil
}

// GetResultsForDate 获取指定日期的全部监控结果（按时间升序）
func (m *Manager) GetResultsForDate(date time.Time) ([]*models.ClassificationResult, error) {
	startOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	endOfDay := startOfDay.Add(24 * time.Hour)

	query := `
		SELECT timestamp, state, confidence, application_name, window_title, ai_analysis
		FROM monitoring_results
		WHERE timestamp >= ? AND timestamp < ?
		ORDER BY timestamp ASC
	`

	rows, err := m.db.Query(query, startOfDay, endOfDay)
	if err != nil {
		return nil, fmt.Errorf("failed to query monitoring results: %w", err)
	}
	defer rows.Close()

	var results []*models.ClassificationResult
	for rows.Next() {
		r := &models.ClassificationResult{}
		var state string
		if err := rows.Scan(&r.Timestamp, &state, &r.Confidence, &r.ApplicationName, &r.WindowTitle, &r.AIAnalysis); err != nil {
			return nil, fmt.Errorf("failed to scan monitoring result: %w", err)
		}
		r.State = models.FocusState(state)
		results = append(results, r)
	}

	return results, nil
}

// CleanupOldResults 删除超过保留期的监控结果和干预记录
func (m *Manager) CleanupOldResults(retentionDays int) (int64, error) {
	cutoffDate := time.Now().AddDate(0, 0, -retentionDays)

	result, err := m.db.Exec(`DELETE FROM monitoring_results WHERE timestamp < ?`, cutoffDate)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old results: %w", err)
	}
	deleted, _ := result.RowsAffected()

	if _, err := m.db.Exec(`DELETE FROM intervention_logs WHERE timestamp < ?`, cutoffDate); err != nil {
		return deleted, fmt.Errorf("failed to delete old intervention logs: %w", err)
	}

	return deleted, nil
}

// SaveInterventionLog 记录一次触发的干预
func (m *Manager) SaveInterventionLog(event *models.InterventionEvent) error {
	query := `INSERT INTO intervention_logs (timestamp, kind, message) VALUES (?, ?, ?)`
	_, err := m.db.Exec(query, event.Timestamp, string(event.Kind), event.Message)
	if err != nil {
		return fmt.Errorf("failed to insert intervention log: %w", err)
	}
	return nil
}

// SaveDailyReport 保存每日报告（同日期覆盖）
func (m *Manager) SaveDailyReport(report *models.DailyReport) error {
	query := `
		INSERT INTO daily_reports (date, content, model, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET content = excluded.content, model = excluded.model, created_at = excluded.created_at
	`
	_, err := m.db.Exec(query, report.Date, report.Content, report.Model, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save daily report: %w", err)
	}
	return nil
}

// GetDailyReport 获取指定日期的报告，没有则返回 nil
func (m *Manager) GetDailyReport(date string) (*models.DailyReport, error) {
	report := &models.DailyReport{}
	err := m.db.QueryRow(
		`SELECT id, date, content, model, created_at FROM daily_reports WHERE date = ?`, date,
	).Scan(&report.ID, &report.Date, &report.Content, &report.Model, &report.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query daily report: %w", err)
	}
	return report, nil
}

// GetTodayStats 获取今日专注统计
func (m *Manager) GetTodayStats(intervalMinutes int) (*models.TodayStats, error) {
	return m.GetStatsForDate(time.Now(), intervalMinutes)
}

// GetStatsForDate 获取指定日期的专注统计
// 每条监控结果按检查间隔折算成对应时长
func (m *Manager) GetStatsForDate(date time.Time, intervalMinutes int) (*models.TodayStats, error) {
	startOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	endOfDay := startOfDay.AddDate(0, 0, 1)

	query := `
		SELECT state, COUNT(*)
		FROM monitoring_results
		WHERE timestamp >= ? AND timestamp < ?
		GROUP BY state
	`

	rows, err := m.db.Query(query, startOfDay, endOfDay)
	if err != nil {
		return nil, fmt.Errorf("failed to query focus stats: %w", err)
	}
	defer rows.Close()

	counts := map[models.FocusState]int{}
	for rows.Next() {
		var state string
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, fmt.Errorf("failed to scan state count: %w", err)
		}
		counts[models.FocusState(state)] = count
	}

	intervalSeconds := intervalMinutes * 60
	focused := counts[models.StateFocused]
	distracted := counts[models.StateDistracted] + counts[models.StateSeverelyDistracted]

	stats := &models.TodayStats{
		TotalFocusSeconds:    focused * intervalSeconds,
		TotalDistractSeconds: distracted * intervalSeconds,
		InterruptionCount:    distracted,
	}

	total := focused + distracted
	if total > 0 {
		stats.FocusScore = focused * 100 / total
	}

	return stats, nil
}

// CountTodayChecks 今日检查次数
func (m *Manager) CountTodayChecks() (int, error) {
	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var count int
	err := m.db.QueryRow(`SELECT COUNT(*) FROM monitoring_results WHERE timestamp >= ?`, startOfDay).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// SaveFocusSession 保存一次结束的专注会话（同ID覆盖）
func (m *Manager) SaveFocusSession(session *models.FocusSession) error {
	query := `
		INSERT OR REPLACE INTO focus_sessions
		(id, session_type, status, duration_minutes, elapsed_seconds, task_id, task_text, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := m.db.Exec(query,
		session.ID, string(session.Type), string(session.Status),
		session.DurationMinutes, session.ElapsedSeconds,
		session.TaskID, session.TaskText, session.StartedAt, session.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to save focus session: %w", err)
	}
	return nil
}

// GetSessionsForDate 获取指定日期启动的专注会话
func (m *Manager) GetSessionsForDate(date time.Time) ([]*models.FocusSession, error) {
	startOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	endOfDay := startOfDay.AddDate(0, 0, 1)

	query := `
		SELECT id, session_type, status, duration_minutes, elapsed_seconds, task_id, task_text, started_at, completed_at
		FROM focus_sessions
		WHERE started_at >= ? AND started_at < ?
		ORDER BY started_at ASC
	`
	rows, err := m.db.Query(query, startOfDay, endOfDay)
	if err != nil {
		return nil, fmt.Errorf("failed to query focus sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.FocusSession
	for rows.Next() {
		s := &models.FocusSession{}
		var sessionType, status string
		var taskID, taskText sql.NullString
		var completedAt sql.NullTime
		if err := rows.Scan(&s.ID, &sessionType, &status, &s.DurationMinutes, &s.ElapsedSeconds,
			&taskID, &taskText, &s.StartedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan focus session: %w", err)
		}
		s.Type = models.SessionType(sessionType)
		s.Status = models.SessionStatus(status)
		s.TaskID = taskID.String
		s.TaskText = taskText.String
		if completedAt.Valid {
			t := completedAt.Time
			s.CompletedAt = &t
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// SaveWeeklyReport 保存每周报告（同起始日覆盖）
func (m *Manager) SaveWeeklyReport(report *models.WeeklyReport) error {
	query := `
		INSERT INTO weekly_reports (week_start, week_end, content, model, created_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(week_start) DO UPDATE SET week_end = excluded.week_end, content = excluded.content, model = excluded.model, created_at = excluded.created_at
	`
	_, err := m.db.Exec(query, report.WeekStart, report.WeekEnd, report.Content, report.Model, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save weekly report: %w", err)
	}
	return nil
}

// GetWeeklyReport 获取指定起始日的周报告，没有则返回 nil
func (m *Manager) GetWeeklyReport(weekStart string) (*models.WeeklyReport, error) {
	report := &models.WeeklyReport{}
	err := m.db.QueryRow(
		`SELECT id, week_start, week_end, content, model, created_at FROM weekly_reports WHERE week_start = ?`, weekStart,
	).Scan(&report.ID, &report.WeekStart, &report.WeekEnd, &report.Content, &report.Model, &report.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query weekly report: %w", err)
	}
	return report, nil
}
