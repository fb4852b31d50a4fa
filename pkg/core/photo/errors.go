package photo

import "errors"

var errNoSession = errors.New("photo: no hardware session attached")
