package directory_test

import (
	"testing"

	"github.com/rpggio/dirstream/internal/domain/directory"
	"github.com/stretchr/testify/require"
)

func TestUserValidate(t *testing.T) {
	valid := directory.SampleUsers()[0]
	require.NoError(t, valid.Validate())

	missingMail := valid
	missingMail.Mail = ""
	require.ErrorIs(t, missingMail.Validate(), directory.ErrInvalidUser)

	missingID := valid
	missingID.ID = " "
	require.ErrorIs(t, missingID.Validate(), directory.ErrInvalidUser)
}

func TestProjectValidate(t *testing.T) {
	valid := directory.SampleProjects()[0]
	require.NoError(t, valid.Validate())

	badStatus := valid
	badStatus.Status = "archived"
	require.ErrorIs(t, badStatus.Validate(), directory.ErrInvalidProject)

	negative := valid
	negative.MemberCount = -1
	require.ErrorIs(t, negative.Validate(), directory.ErrInvalidProject)

	badOwner := valid
	badOwner.Owner.DisplayName = ""
	require.ErrorIs(t, badOwner.Validate(), directory.ErrInvalidProject)
}

func TestParseKind(t *testing.T) {
	kind, err := directory.ParseKind("users")
	require.NoError(t, err)
	require.Equal(t, directory.KindUsers, kind)

	kind, err = directory.ParseKind("projects")
	require.NoError(t, err)
	require.Equal(t, directory.KindProjects, kind)

	_, err = directory.ParseKind("groups")
	require.ErrorIs(t, err, directory.ErrUnknownKind)
}
