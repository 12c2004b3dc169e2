package helper_util

import (
	"strconv"

	"github.com/gin-gonic/gin"

	gate_errors "github.com/dev-mohitbeniwal/modelgate/errors"
)

const MaxPageSize = 100

func GetPaginationParams(c *gin.Context) (limit int, offset int, err error) {
	limit, err = strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit <= 0 || limit > MaxPageSize {
		return 0, 0, gate_errors.ErrInvalidPagination
	}
	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		return 0, 0, gate_errors.ErrInvalidPagination
	}
	return limit, offset, nil
}
