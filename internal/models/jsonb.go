package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// The document-shaped columns (examples, test cases, room users, contest
// problem standings) are stored as jsonb. Each list type below implements
// driver.Valuer and sql.Scanner so sqlx round-trips them transparently.

func jsonbValue(v any) (driver.Value, error) {
	return json.Marshal(v)
}

func jsonbScan(dest any, src any) error {
	switch data := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(data, dest)
	case string:
		return json.Unmarshal([]byte(data), dest)
	default:
		return fmt.Errorf("cannot scan %T into jsonb value", src)
	}
}

type StringList []string

func (l StringList) Value() (driver.Value, error) { return jsonbValue(l) }
func (l *StringList) Scan(src any) error          { return jsonbScan(l, src) }

type ExampleList []Example

func (l ExampleList) Value() (driver.Value, error) { return jsonbValue(l) }
func (l *ExampleList) Scan(src any) error          { return jsonbScan(l, src) }

type TestCaseList []TestCase

func (l TestCaseList) Value() (driver.Value, error) { return jsonbValue(l) }
func (l *TestCaseList) Scan(src any) error          { return jsonbScan(l, src) }

type TestResultList []TestResult

func (l TestResultList) Value() (driver.Value, error) { return jsonbValue(l) }
func (l *TestResultList) Scan(src any) error          { return jsonbScan(l, src) }

type RoomUserList []RoomUser

func (l RoomUserList) Value() (driver.Value, error) { return jsonbValue(l) }
func (l *RoomUserList) Scan(src any) error          { return jsonbScan(l, src) }

type ContestProblemList []ContestProblem

func (l ContestProblemList) Value() (driver.Value, error) { return jsonbValue(l) }
func (l *ContestProblemList) Scan(src any) error          { return jsonbScan(l, src) }
