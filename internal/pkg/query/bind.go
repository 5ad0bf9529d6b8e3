package query

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/fredbi/chartviz/internal/pkg/config"
)

// dateParamRex matches the ":from" and ":to" date parameters, but not casts such as "x::to".
var dateParamRex = regexp.MustCompile(`(^|[^:\w]):(from|to)\b`)

// bindDates rewrites the date parameters of a query into driver placeholders and returns the matching arguments.
//
// Unset dates are bound as NULL, so a query may use "(:from IS NULL OR day >= :from)".
func bindDates(driver config.Driver, query, from, to string) (string, []any) {
	var args []any
	positions := make(map[string]int, 2)

	bound := dateParamRex.ReplaceAllStringFunc(query, func(match string) string {
		idx := strings.LastIndexByte(match, ':')
		prefix, name := match[:idx], match[idx+1:]

		value := nullable(from)
		if name == "to" {
			value = nullable(to)
		}

		if driver != config.DriverPostgres {
			args = append(args, value)

			return prefix + "?"
		}

		pos, ok := positions[name]
		if !ok {
			args = append(args, value)
			pos = len(args)
			positions[name] = pos
		}

		return prefix + "$" + strconv.Itoa(pos)
	})

	return bound, args
}

func nullable(date string) any {
	if date == "" {
		return nil
	}

	return date
}
