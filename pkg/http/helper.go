package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"cardetail/pkg/config"
	apperrors "cardetail/pkg/errors"
	"cardetail/pkg/model"
)

const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorRole = "X-Actor-Role"
)

func ExtractLimitOffset(r *http.Request) (int, int64, error) {
	query := r.URL.Query()

	limit := 0
	if s := query.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid limit parameter: " + s)
		}
		limit = v
	}

	var offset int64 = 0
	if s := query.Get("offset"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid offset parameter: " + s)
		}
		offset = v
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	return limit, offset, nil
}

// ExtractActor reads the caller identity set by the upstream access layer.
func ExtractActor(r *http.Request) (model.Actor, error) {
	actor := model.Actor{
		ID:   r.Header.Get(HeaderActorID),
		Role: r.Header.Get(HeaderActorRole),
	}
	if actor.ID == "" {
		return model.Actor{}, apperrors.Unauthorized("Missing " + HeaderActorID + " header")
	}
	switch actor.Role {
	case model.RoleAdmin, model.RoleStaff, model.RoleCustomer:
	case "":
		actor.Role = model.RoleCustomer
	default:
		return model.Actor{}, apperrors.InvalidInput(fmt.Sprintf("unknown actor role: %s", actor.Role))
	}
	return actor, nil
}

// DecodeJSON decodes the request body into dst, rejecting unknown fields.
// An empty body is accepted when allowEmpty is set.
func DecodeJSON(r *http.Request, dst any, allowEmpty bool) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return apperrors.InvalidInput("Invalid request body: " + err.Error())
	}
	return nil
}
