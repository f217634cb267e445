// Package wire defines the JSON messages of the cart offer API and their
// jx codecs.
package wire

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// OfferRequest is the body of POST /api/v1/offer and one line of a seed file.
type OfferRequest struct {
	RestaurantID int64
	OfferType    string
	OfferValue   int64
	Segments     []string
}

// Decode decodes OfferRequest from json. Segments are accepted under both
// "customer_segment" and "segments".
func (s *OfferRequest) Decode(d *jx.Decoder) error {
	if s == nil {
		return errors.New("invalid: unable to decode OfferRequest to nil")
	}
	if err := d.ObjBytes(func(d *jx.Decoder, k []byte) error {
		switch string(k) {
		case "restaurant_id":
			return decodeInt(d, "restaurant_id", &s.RestaurantID)
		case "offer_type":
			return decodeStr(d, "offer_type", &s.OfferType)
		case "offer_value":
			return decodeInt(d, "offer_value", &s.OfferValue)
		case "customer_segment", "segments":
			return decodeStrings(d, string(k), &s.Segments)
		default:
			return d.Skip()
		}
	}); err != nil {
		return errors.Wrap(err, "decode OfferRequest")
	}
	return nil
}

// Encode encodes OfferRequest as json.
func (s OfferRequest) Encode(e *jx.Encoder) {
	e.ObjStart()
	s.encodeFields(e)
	e.ObjEnd()
}

func (s OfferRequest) encodeFields(e *jx.Encoder) {
	e.FieldStart("restaurant_id")
	e.Int64(s.RestaurantID)
	e.FieldStart("offer_type")
	e.Str(s.OfferType)
	e.FieldStart("offer_value")
	e.Int64(s.OfferValue)
	e.FieldStart("customer_segment")
	e.ArrStart()
	for _, seg := range s.Segments {
		e.Str(seg)
	}
	e.ArrEnd()
}

// Offer is a registered offer as returned by GET /api/v1/offer.
type Offer struct {
	ID string
	OfferRequest
}

// Encode encodes Offer as json.
func (s Offer) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(s.ID)
	s.encodeFields(e)
	e.ObjEnd()
}

// OfferList is the body of GET /api/v1/offer.
type OfferList struct {
	Offers []Offer
}

// Encode encodes OfferList as json.
func (s OfferList) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("offers")
	e.ArrStart()
	for _, o := range s.Offers {
		o.Encode(e)
	}
	e.ArrEnd()
	e.ObjEnd()
}

// ApplyOfferRequest is the body of POST /api/v1/cart/apply_offer.
type ApplyOfferRequest struct {
	CartValue    int64
	UserID       int64
	RestaurantID int64
}

// Decode decodes ApplyOfferRequest from json.
func (s *ApplyOfferRequest) Decode(d *jx.Decoder) error {
	if s == nil {
		return errors.New("invalid: unable to decode ApplyOfferRequest to nil")
	}
	if err := d.ObjBytes(func(d *jx.Decoder, k []byte) error {
		switch string(k) {
		case "cart_value":
			return decodeInt(d, "cart_value", &s.CartValue)
		case "user_id":
			return decodeInt(d, "user_id", &s.UserID)
		case "restaurant_id":
			return decodeInt(d, "restaurant_id", &s.RestaurantID)
		default:
			return d.Skip()
		}
	}); err != nil {
		return errors.Wrap(err, "decode ApplyOfferRequest")
	}
	return nil
}

// Encode encodes ApplyOfferRequest as json.
func (s ApplyOfferRequest) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("cart_value")
	e.Int64(s.CartValue)
	e.FieldStart("user_id")
	e.Int64(s.UserID)
	e.FieldStart("restaurant_id")
	e.Int64(s.RestaurantID)
	e.ObjEnd()
}

// ApplyOfferResponse is the response of POST /api/v1/cart/apply_offer.
type ApplyOfferResponse struct {
	CartValue int64
}

// Encode encodes ApplyOfferResponse as json.
func (s ApplyOfferResponse) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("cart_value")
	e.Int64(s.CartValue)
	e.ObjEnd()
}

// Decode decodes ApplyOfferResponse from json.
func (s *ApplyOfferResponse) Decode(d *jx.Decoder) error {
	if err := d.ObjBytes(func(d *jx.Decoder, k []byte) error {
		if string(k) == "cart_value" {
			return decodeInt(d, "cart_value", &s.CartValue)
		}
		return d.Skip()
	}); err != nil {
		return errors.Wrap(err, "decode ApplyOfferResponse")
	}
	return nil
}

// APIResponse is the acknowledgement returned by POST /api/v1/offer.
type APIResponse struct {
	ResponseMsg string
}

// Encode encodes APIResponse as json.
func (s APIResponse) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("response_msg")
	e.Str(s.ResponseMsg)
	e.ObjEnd()
}

// Error is the body of every 4xx/5xx response. RequestID is omitted when
// empty.
type Error struct {
	Code      int
	Message   string
	RequestID string
}

// Encode encodes Error as json.
func (s Error) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("code")
	e.Int(s.Code)
	e.FieldStart("message")
	e.Str(s.Message)
	if s.RequestID != "" {
		e.FieldStart("request_id")
		e.Str(s.RequestID)
	}
	e.ObjEnd()
}

// decodeInt reads an integer field. A null leaves the zero value.
func decodeInt(d *jx.Decoder, field string, v *int64) error {
	if d.Next() == jx.Null {
		return d.Null()
	}
	n, err := d.Int64()
	if err != nil {
		return errors.Wrapf(err, "field %q", field)
	}
	*v = n
	return nil
}

func decodeStr(d *jx.Decoder, field string, v *string) error {
	if d.Next() == jx.Null {
		return d.Null()
	}
	s, err := d.Str()
	if err != nil {
		return errors.Wrapf(err, "field %q", field)
	}
	*v = s
	return nil
}

func decodeStrings(d *jx.Decoder, field string, v *[]string) error {
	if d.Next() == jx.Null {
		return d.Null()
	}
	out := make([]string, 0)
	if err := d.Arr(func(d *jx.Decoder) error {
		s, err := d.Str()
		if err != nil {
			return err
		}
		out = append(out, s)
		return nil
	}); err != nil {
		return errors.Wrapf(err, "field %q", field)
	}
	*v = out
	return nil
}
