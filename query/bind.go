package query

import "github.com/blackhowling/sqlkit/driver"

// ApplyPresets runs the statement-binding protocol of §4.5 against a
// just-prepared statement: every WHERE preset is bound first, followed by
// the limit preset (if any) at index Placeholders.Base+Placeholders.Where,
// then the offset preset (if any) at the index after that. Base is zero
// except for UPDATE, whose SET placeholders precede the WHERE clause's.
// The application is responsible
// for binding any remaining placeholders before calling Execute.
func ApplyPresets(stmt driver.Statement, bq BuiltQuery) error {
	for idx, v := range bq.PreSets.Where {
		if err := stmt.BindValue(idx, v); err != nil {
			return err
		}
	}
	next := bq.Placeholders.Base + bq.Placeholders.Where
	if bq.PreSets.Limit != nil {
		if err := stmt.BindI64(next, *bq.PreSets.Limit); err != nil {
			return err
		}
	}
	if bq.PreSets.Offset != nil {
		if err := stmt.BindI64(next+1, *bq.PreSets.Offset); err != nil {
			return err
		}
	}
	return nil
}
