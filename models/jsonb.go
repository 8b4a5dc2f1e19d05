package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
)

// Вложенные документы хранятся в JSONB-колонках владельца.

func scanJSON(src interface{}, dst interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("jsonb: unsupported source type %T", src)
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dst)
}

func jsonValue(v interface{}) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Пустые коллекции пишутся как [], а не null
func (r Reviews) Value() (driver.Value, error) {
	if r == nil {
		r = Reviews{}
	}
	return jsonValue([]Review(r))
}

func (r *Reviews) Scan(src interface{}) error { return scanJSON(src, (*[]Review)(r)) }

func (m RequiredMaterials) Value() (driver.Value, error) {
	if m == nil {
		m = RequiredMaterials{}
	}
	return jsonValue([]RequiredMaterial(m))
}

func (m *RequiredMaterials) Scan(src interface{}) error {
	return scanJSON(src, (*[]RequiredMaterial)(m))
}

func (m BidMaterials) Value() (driver.Value, error) {
	if m == nil {
		m = BidMaterials{}
	}
	return jsonValue([]BidMaterial(m))
}

func (m *BidMaterials) Scan(src interface{}) error { return scanJSON(src, (*[]BidMaterial)(m)) }

func (a Address) Value() (driver.Value, error) { return jsonValue(a) }

func (a *Address) Scan(src interface{}) error {
	type plain Address
	return scanJSON(src, (*plain)(a))
}

func (d VerificationDocuments) Value() (driver.Value, error) { return jsonValue(d) }

func (d *VerificationDocuments) Scan(src interface{}) error {
	type plain VerificationDocuments
	return scanJSON(src, (*plain)(d))
}

func (t Terms) Value() (driver.Value, error) { return jsonValue(t) }

func (t *Terms) Scan(src interface{}) error {
	type plain Terms
	return scanJSON(src, (*plain)(t))
}

func (s SalesData) Value() (driver.Value, error) {
	if s == nil {
		s = SalesData{}
	}
	return jsonValue([]Sale(s))
}

func (s *SalesData) Scan(src interface{}) error { return scanJSON(src, (*[]Sale)(s)) }

func (u MaterialUsage) Value() (driver.Value, error) {
	if u == nil {
		u = MaterialUsage{}
	}
	return jsonValue([]MaterialUse(u))
}

func (u *MaterialUsage) Scan(src interface{}) error { return scanJSON(src, (*[]MaterialUse)(u)) }

func (i Insights) Value() (driver.Value, error) { return jsonValue(i) }

func (i *Insights) Scan(src interface{}) error {
	type plain Insights
	return scanJSON(src, (*plain)(i))
}

// Photos и Tags лежат в TEXT[]

func (p Photos) Value() (driver.Value, error) {
	if p == nil {
		p = Photos{}
	}
	return pq.StringArray(p).Value()
}

func (p *Photos) Scan(src interface{}) error { return (*pq.StringArray)(p).Scan(src) }

func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		t = Tags{}
	}
	return pq.StringArray(t).Value()
}

func (t *Tags) Scan(src interface{}) error { return (*pq.StringArray)(t).Scan(src) }
