package notify

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"go.uber.org/zap/zaptest"
)

// broadcastCutoffArg accepts only a timestamp sitting BroadcastWindow in the
// past, pinning the recency filter poll applies to broadcasts.
type broadcastCutoffArg struct{}

func (broadcastCutoffArg) Match(v driver.Value) bool {
	cutoff, ok := v.(time.Time)
	if !ok {
		return false
	}
	offset := time.Since(cutoff) - BroadcastWindow
	if offset < 0 {
		offset = -offset
	}
	return offset < 5*time.Second
}

func setupDispatcherTest(t *testing.T) (*Dispatcher, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	return NewDispatcher(db, nil, zaptest.NewLogger(t)), mock, db
}

var notificationTestColumns = []string{"id", "user_id", "title", "message", "is_read", "created_at"}

func TestDispatcher_SendToUser(t *testing.T) {
	d, mock, db := setupDispatcherTest(t)
	defer db.Close()

	mock.ExpectQuery("INSERT INTO notifications").
		WithArgs(3, "Order shipped", "Your order is on its way").
		WillReturnRows(sqlmock.NewRows(notificationTestColumns).
			AddRow(1, 3, "Order shipped", "Your order is on its way", false, time.Now()))

	err := d.SendToUser(context.Background(), "Order shipped", "Your order is on its way", 3)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestDispatcher_SendToMany(t *testing.T) {
	d, mock, db := setupDispatcherTest(t)
	defer db.Close()

	mock.ExpectExec("INSERT INTO notifications").
		WithArgs(3, "Sale", "Everything must go", 4, "Sale", "Everything must go").
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := d.SendToMany(context.Background(), "Sale", "Everything must go", []int{3, 4})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestDispatcher_SendToMany_EmptyList(t *testing.T) {
	d, mock, db := setupDispatcherTest(t)
	defer db.Close()

	if err := d.SendToMany(context.Background(), "Sale", "msg", nil); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestDispatcher_Broadcast(t *testing.T) {
	d, mock, db := setupDispatcherTest(t)
	defer db.Close()

	mock.ExpectQuery("INSERT INTO notifications").
		WithArgs("Maintenance", "Back in an hour").
		WillReturnRows(sqlmock.NewRows(notificationTestColumns).
			AddRow(2, nil, "Maintenance", "Back in an hour", false, time.Now()))

	if err := d.Broadcast(context.Background(), "Maintenance", "Back in an hour"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestDispatcher_Poll(t *testing.T) {
	d, mock, db := setupDispatcherTest(t)
	defer db.Close()

	older := time.Now().Add(-30 * time.Second)
	newer := time.Now().Add(-5 * time.Second)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE notifications SET is_read = TRUE").
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows(notificationTestColumns).
			AddRow(1, 3, "Order shipped", "On its way", true, older))
	mock.ExpectQuery("SELECT (.+) FROM notifications\\s+WHERE user_id IS NULL").
		WithArgs(broadcastCutoffArg{}).
		WillReturnRows(sqlmock.NewRows(notificationTestColumns).
			AddRow(2, nil, "Maintenance", "Back soon", false, newer))
	mock.ExpectCommit()

	notifications, err := d.Poll(context.Background(), 3)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(notifications) != 2 {
		t.Fatalf("Expected 2 notifications, got %d", len(notifications))
	}
	// Newest first: the broadcast comes before the older direct one.
	if notifications[0].Title != "Maintenance" {
		t.Errorf("Expected broadcast first, got %s", notifications[0].Title)
	}
	if notifications[1].UserID == nil || *notifications[1].UserID != 3 {
		t.Errorf("Expected direct notification for user 3, got %+v", notifications[1].UserID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestDispatcher_History(t *testing.T) {
	d, mock, db := setupDispatcherTest(t)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM notifications\\s+WHERE user_id = \\$1 OR user_id IS NULL").
		WithArgs(3, HistoryLimit).
		WillReturnRows(sqlmock.NewRows(notificationTestColumns).
			AddRow(2, nil, "Maintenance", "Back soon", false, time.Now()).
			AddRow(1, 3, "Order shipped", "On its way", true, time.Now().Add(-time.Hour)))

	notifications, err := d.History(context.Background(), 3)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(notifications) != 2 {
		t.Fatalf("Expected 2 notifications, got %d", len(notifications))
	}
	if !notifications[1].IsRead {
		t.Error("Expected history to preserve read state")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}
