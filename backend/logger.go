package backend

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "backend")
