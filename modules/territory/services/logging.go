package services

import (
	"io"

	"github.com/sirupsen/logrus"
)

func logrusNop() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func rowFields(table, line int, code string) logrus.Fields {
	return logrus.Fields{
		"table": table,
		"line":  line,
		"code":  code,
	}
}
