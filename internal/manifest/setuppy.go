package manifest

import (
	"bytes"
	"regexp"
	"strconv"

	"github.com/pkg/errors"
)

// keywordRe matches a string literal keyword argument such as name='acme'.
// Only the first occurrence of each keyword is considered.
func keywordRe(key string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + key + `\s*=\s*(['"])([^'"\n]*)(['"])`)
}

// exprRe matches the same keyword bound to any other expression, such as
// version=__version__. Comparisons (==) are not assignments.
func exprRe(key string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + key + `\s*=\s*([^=\s][^,)\n]*)`)
}

var (
	nameKeyword    = keywordRe("name")
	versionKeyword = keywordRe("version")
	nameExpr       = exprRe("name")
	versionExpr    = exprRe("version")
)

// ErrNonLiteral is returned when setup.py passes name or version as an
// expression. The value cannot be read or rewritten without running the file.
var ErrNonLiteral = errors.New("setup.py keyword is not a string literal")

func parseSetupPy(data []byte) (name, version string, err error) {
	if name, err = setupKeyword(data, nameKeyword, nameExpr, "name"); err != nil {
		return "", "", err
	}
	if version, err = setupKeyword(data, versionKeyword, versionExpr, "version"); err != nil {
		return "", "", err
	}
	return name, version, nil
}

func setupKeyword(data []byte, literal, expr *regexp.Regexp, key string) (string, error) {
	if m := literal.FindSubmatch(data); m != nil {
		return string(m[2]), nil
	}
	if m := expr.FindSubmatch(data); m != nil {
		return "", errors.Wrapf(ErrNonLiteral, "%s=%s", key, bytes.TrimSpace(m[1]))
	}
	return "", nil
}

func setSetupPy(data []byte, name, version string) ([]byte, error) {
	out, err := replaceKeyword(data, nameKeyword, "name", name)
	if err != nil {
		return nil, err
	}
	return replaceKeyword(out, versionKeyword, "version", version)
}

func replaceKeyword(data []byte, re *regexp.Regexp, key, value string) ([]byte, error) {
	loc := re.FindSubmatchIndex(data)
	if loc == nil {
		return nil, errors.Errorf("setup.py has no literal %s= argument", key)
	}
	var out []byte
	out = append(out, data[:loc[0]]...)
	out = append(out, key+"="+strconv.Quote(value)...)
	out = append(out, data[loc[1]:]...)
	return out, nil
}
