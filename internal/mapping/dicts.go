package mapping

// 보건소 정보시스템 레거시 테이블 어휘 (기존 영문명 / 한글명)
var TableDict = []struct {
	Eng string
	Kor string
}{
	{"AGENCY", "보건기관"}, {"VISIT", "방문"}, {"PATIENT", "수진자"},
	{"EXAMINEE", "검진대상자"}, {"VACCINE", "예방접종"}, {"PRESCRIPTION", "처방"},
	{"DIAGNOSIS", "진단"}, {"TREATMENT", "진료"}, {"RESERVATION", "예약"},
	{"INSURANCE", "보험자격"}, {"WORKPLACE", "사업장"}, {"HEALTHCHECK", "건강검진"},
	{"IMMUNIZATION", "접종이력"}, {"MEDICINE", "의약품"}, {"DOCTOR", "의사"},
	{"NURSE", "간호사"}, {"WARD", "병동"}, {"CLINICROOM", "진료실"},
	{"FEE", "수가"}, {"PAYMENT", "수납"},
}

// 컬럼 조각 어휘: 기존 영문 조각 → 한글명/신규 유형/길이
// 조각 이름이 곧 의미를 암시하는 레거시 네이밍 관행을 따른다.
var ColumnDict = []struct {
	Eng    string
	Kor    string
	Type   string
	Length string
}{
	{"ID", "식별자", "NUMBER", "10"},
	{"CODE", "코드", "VARCHAR2", "10"},
	{"NAME", "명칭", "VARCHAR2", "100"},
	{"JUMIN_NO", "주민등록번호", "VARCHAR2", "13"},
	{"BIRTH_DT", "생년월일", "DATE", ""},
	{"SEX_CD", "성별코드", "CHAR", "1"},
	{"ADDR", "주소", "VARCHAR2", "200"},
	{"TEL_NO", "전화번호", "VARCHAR2", "20"},
	{"VISIT_DT", "방문일자", "DATE", ""},
	{"REG_DT", "등록일시", "DATE", ""},
	{"UPD_DT", "수정일시", "DATE", ""},
	{"REG_USER", "등록자", "VARCHAR2", "20"},
	{"STATUS_CD", "상태코드", "CHAR", "2"},
	{"AMT", "금액", "NUMBER", "12"},
	{"QTY", "수량", "NUMBER", "5"},
	{"RMK", "비고", "VARCHAR2", "500"},
	{"USE_YN", "사용여부", "CHAR", "1"},
	{"DEL_YN", "삭제여부", "CHAR", "1"},
	{"AGENCY_CD", "기관코드", "VARCHAR2", "8"},
	{"DEPT_CD", "부서코드", "VARCHAR2", "6"},
}
